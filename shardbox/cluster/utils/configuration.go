package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

type Configuration struct {
	LOG_TO                   string   `yaml:"logTo"`
	LOG_LEVEL                string   `yaml:"logLevel"`
	LOG_DIR                  string   `yaml:"logDir"`
	LOG_FILE_NAME            string   `yaml:"logFileName"`
	LOG_FILE_MAX_SIZE        int      `yaml:"logFileMaxSize"`
	LOG_FILE_MAX_NUM_BACKUPS int      `yaml:"logFileMaxNumBackups"`
	LOG_FILE_MAX_AGE         int      `yaml:"logFileMaxAge"`

	DATA_FOLDER string `yaml:"dataFolder"`

	NUMB_VNODES     int    `yaml:"numbVNodes"`
	RING_SPACE_BITS int    `yaml:"ringSpaceBits"`
	HASH_FUNCTION   string `yaml:"hashFunction"`

	SCHEMA []string `yaml:"schema"`
}

var confInstance Configuration

func GetClusterConfiguration() *Configuration {
	return &confInstance
}

var (
	configFileName = "shard-box"
	configFileType = "yaml"
	configPaths    = []string{
		"/etc/shard-box/",
		"$HOME/.shard-box",
		".",
	}
)

var ErrConfigFileNotFound = errors.New("CONFIG_FILE_NOT_FOUND")

func LoadConfiguration(confFilePath string) (Configuration, error) {
	if confFilePath != "" {
		locationPath := filepath.Dir(confFilePath)
		tmpFileName := filepath.Base(confFilePath)
		ext := filepath.Ext(confFilePath)
		if ext != ".yaml" && ext != ".yml" {
			return Configuration{}, errors.New("configuration file requires .yaml or .yml extension")
		}
		fileName := strings.ReplaceAll(tmpFileName, ext, "")
		return initConfiguration(fileName, configFileType, []string{locationPath})
	}
	return initConfiguration(configFileName, configFileType, configPaths)
}

func initConfiguration(fileName string, fileType string, paths []string) (Configuration, error) {
	viper.SetConfigName(fileName)
	viper.SetConfigType(fileType)

	// call multiple times to add many search paths
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Configuration{}, ErrConfigFileNotFound
		}
		return Configuration{}, fmt.Errorf("error loading config: %w", err)
	}

	conf := Configuration{
		LOG_TO:                   viper.GetString("logTo"),
		LOG_LEVEL:                viper.GetString("logLevel"),
		LOG_DIR:                  viper.GetString("logDir"),
		LOG_FILE_NAME:            viper.GetString("logFileName"),
		LOG_FILE_MAX_SIZE:        viper.GetInt("logFileMaxSize"),
		LOG_FILE_MAX_NUM_BACKUPS: viper.GetInt("logFileMaxNumBackups"),
		LOG_FILE_MAX_AGE:         viper.GetInt("logFileMaxAge"),
		DATA_FOLDER:              viper.GetString("dataFolder"),
		NUMB_VNODES:              viper.GetInt("numbVNodes"),
		RING_SPACE_BITS:          viper.GetInt("ringSpaceBits"),
		HASH_FUNCTION:            viper.GetString("hashFunction"),
		SCHEMA:                   viper.GetStringSlice("schema"),
	}

	return conf, nil
}

// VerifyAndSetConfiguration validates conf, applies defaults and installs
// it as the process configuration.
func VerifyAndSetConfiguration(conf *Configuration) error {
	var problems []string

	if conf.DATA_FOLDER == "" {
		problems = append(problems, "dataFolder is required")
	}
	if conf.NUMB_VNODES == 0 {
		conf.NUMB_VNODES = 150
	}
	if conf.NUMB_VNODES < 0 {
		problems = append(problems, "numbVNodes cannot be negative")
	}
	if conf.RING_SPACE_BITS == 0 {
		conf.RING_SPACE_BITS = 32
	}
	if conf.RING_SPACE_BITS < 1 || conf.RING_SPACE_BITS > 64 {
		problems = append(problems, "ringSpaceBits must be between 1 and 64")
	}
	switch conf.HASH_FUNCTION {
	case "":
		conf.HASH_FUNCTION = "sha256"
	case "sha256", "murmur3":
	default:
		problems = append(problems, "hashFunction must be sha256 or murmur3")
	}
	if len(conf.SCHEMA) == 0 {
		conf.SCHEMA = []string{"id", "data", "created_at"}
	} else if len(conf.SCHEMA) != 3 {
		problems = append(problems, "schema must name exactly 3 fields (key, value, timestamp)")
	}
	if conf.LOG_TO == "" {
		conf.LOG_TO = "console"
	}
	if conf.LOG_LEVEL == "" {
		conf.LOG_LEVEL = "info"
	}

	if len(problems) > 0 {
		return errors.New("configuration errors: " + strings.Join(problems, ", "))
	}

	confInstance = *conf
	return nil
}

// WriteStarterConfiguration writes a config file with the defaults so a new
// deployment has something to edit.
func WriteStarterConfiguration(path string) error {
	conf := Configuration{
		LOG_TO:          "console",
		LOG_LEVEL:       "info",
		DATA_FOLDER:     "./shard-box-data",
		NUMB_VNODES:     150,
		RING_SPACE_BITS: 32,
		HASH_FUNCTION:   "sha256",
		SCHEMA:          []string{"id", "data", "created_at"},
	}
	out, err := yaml.Marshal(&conf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

func GetConfForTesting() *Configuration {
	return &Configuration{
		LOG_TO:          "console",
		LOG_LEVEL:       "error",
		DATA_FOLDER:     os.TempDir(),
		NUMB_VNODES:     150,
		RING_SPACE_BITS: 32,
		HASH_FUNCTION:   "sha256",
		SCHEMA:          []string{"id", "data", "created_at"},
	}
}
