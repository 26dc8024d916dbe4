package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lrondanini/shard-box/server/cli"
	"github.com/lrondanini/shard-box/shardbox/cluster/utils"
)

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func main() {
	flag.Bool("h", false, "Shows this help")
	useConfFilePtr := flag.String("c", "", "Specify configuration file")
	flag.Parse()

	if isFlagPassed("h") {
		flag.Usage()
		os.Exit(0)
	}

	confFilePath := ""
	if isFlagPassed("c") {
		confFilePath = *useConfFilePtr
	}

	conf, err := utils.LoadConfiguration(confFilePath)
	if err != nil {
		if err == utils.ErrConfigFileNotFound {
			starter := "shard-box.yaml"
			if werr := utils.WriteStarterConfiguration(starter); werr == nil {
				fmt.Println("No configuration file found, starter written to " + starter)
			}
			conf = utils.Configuration{DATA_FOLDER: "./shard-box-data"}
		} else {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if err := utils.VerifyAndSetConfiguration(&conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli.Start()
}
