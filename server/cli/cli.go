package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/manifoldco/promptui"

	"github.com/lrondanini/shard-box/shardbox/cluster"
	"github.com/lrondanini/shard-box/shardbox/cluster/utils"
	"github.com/lrondanini/shard-box/shardbox/storage"
	"github.com/lrondanini/shard-box/shardbox/visualizer"
)

func Start() {
	cli, err := initCLI()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cli.Run()
}

type userInput struct {
	cmd    string
	params []string
}

type CLI struct {
	conf    *utils.Configuration
	manager *cluster.Manager
	store   *storage.BadgerStore
}

func initCLI() (*CLI, error) {
	fmt.Println()
	myFigure := figure.NewFigure("Shard-Box", "graffiti", true)
	myFigure.Print()
	fmt.Println()
	fmt.Println()

	conf := utils.GetClusterConfiguration()

	store := storage.NewBadgerStore(conf.DATA_FOLDER)
	journal, err := storage.OpenJournal(conf.DATA_FOLDER)
	if err != nil {
		return nil, err
	}

	manager, err := cluster.NewManager(conf, store, journal)
	if err != nil {
		return nil, err
	}

	if n, err := manager.Recover(); err != nil {
		fmt.Println("Journal replay failed: " + err.Error())
	} else if n > 0 {
		fmt.Printf("Journal replay cleaned up %d interrupted migrations\n", n)
	}

	return &CLI{
		conf:    conf,
		manager: manager,
		store:   store,
	}, nil
}

func (cli *CLI) Run() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(signalChan)
	}()

	go func() {
		<-signalChan // detect exit
		cli.Shutdown()
		fmt.Println()
		fmt.Println("...cya!")
		os.Exit(0)
	}()

	fmt.Println()
	fmt.Println("Welcome to shard-box, press Enter for a list of commands")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("shard-box> ")
		if !scanner.Scan() {
			signalChan <- os.Interrupt
			time.Sleep(time.Second)
			return
		}
		uInput := parseUserInput(scanner.Text())

		switch uInput.cmd {
		case "help", "h":
			cli.PrintHelp()
		case "exit", "e", "q", "quit":
			signalChan <- os.Interrupt
			time.Sleep(time.Second)
			return
		case "add-node", "an":
			if len(uInput.params) == 1 {
				cli.AddNode(uInput.params[0])
			} else {
				fmt.Println("Wrong number of parameters, requires node-name")
			}
		case "remove-node", "rn":
			if len(uInput.params) > 0 {
				cli.RemoveNode(uInput.params[0])
			} else {
				cli.RemoveNode("")
			}
		case "insert", "ins":
			if len(uInput.params) == 2 || len(uInput.params) == 3 {
				cli.PerformInsert(uInput.params)
			} else {
				fmt.Println("Wrong number of parameters, requires id data [created-at]")
			}
		case "get":
			if len(uInput.params) == 1 {
				cli.PerformGet(uInput.params[0])
			} else {
				fmt.Println("Wrong number of parameters, requires id")
			}
		case "del":
			if len(uInput.params) == 1 {
				cli.PerformDel(uInput.params[0])
			} else {
				fmt.Println("Wrong number of parameters, requires id")
			}
		case "ring", "r":
			visualizer.RenderRing(os.Stdout, cli.manager.RingEntries())
		case "dist", "d":
			err := visualizer.RenderDistribution(os.Stdout, cli.manager.RingEntries(), cli.store, visualizer.DefaultSampleSize)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
		case "locate", "loc":
			if len(uInput.params) == 1 {
				cli.PerformLocate(uInput.params[0])
			} else {
				fmt.Println("Wrong number of parameters, requires id")
			}
		case "stats", "s":
			cli.PrintStats()
		case "seed":
			if len(uInput.params) == 1 {
				cli.Seed(uInput.params[0])
			} else {
				fmt.Println("Wrong number of parameters, requires number-of-records")
			}
		default:
			if uInput.cmd != "" {
				fmt.Println("Unknown command: " + uInput.cmd)
			} else {
				cli.PrintHelp()
			}
		}
	}
}

func parseUserInput(line string) userInput {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return userInput{}
	}
	return userInput{cmd: fields[0], params: fields[1:]}
}

func (cli *CLI) PrintHelp() {
	fmt.Println()
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', tabwriter.AlignRight)
	fmt.Fprintln(writer, "(short)\tCOMMAND\tPARAMETERS\tDESCRIPTION")
	fmt.Fprintln(writer, "\t\t\t")
	fmt.Fprintln(writer, "(h)\thelp\t\tShows this help")
	fmt.Fprintln(writer, "(an)\tadd-node\tnode-name\tAdds a node to the ring and rebalances")
	fmt.Fprintln(writer, "(rn)\tremove-node\t[node-name]\tRemoves a node, migrating its records")
	fmt.Fprintln(writer, "(ins)\tinsert\tid data [created-at]\tInserts a record")
	fmt.Fprintln(writer, "\tget\tid\tReturns all records stored under id")
	fmt.Fprintln(writer, "\tdel\tid\tDeletes all records stored under id")
	fmt.Fprintln(writer, "(r)\tring\t\tShows the ring in clockwise order")
	fmt.Fprintln(writer, "(d)\tdist\t\tShows records per node with samples")
	fmt.Fprintln(writer, "(loc)\tlocate\tid\tShows which node owns id")
	fmt.Fprintln(writer, "(s)\tstats\t\tShows host and per-node stats")
	fmt.Fprintln(writer, "\tseed\tn\tInserts n random records")
	fmt.Fprintln(writer, "(q)\texit\t\tBye")
	writer.Flush()
	fmt.Println()
}

func (cli *CLI) AddNode(name string) {
	if err := cli.manager.AddNode(context.Background(), name); err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	fmt.Println("Node " + name + " added")
}

func (cli *CLI) RemoveNode(name string) {
	var err error
	if name == "" {
		name, err = cli.SelectNode()
		if err != nil {
			fmt.Println("Error: " + err.Error())
			return
		}
	}

	prompt := promptui.Prompt{
		Label:     "Remove node " + name + " and migrate its records",
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		fmt.Println("Aborted")
		return
	}

	if err := cli.manager.RemoveNode(context.Background(), name); err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	fmt.Println("Node " + name + " removed")
}

func (cli *CLI) SelectNode() (string, error) {
	nodes := cli.manager.Nodes()
	if len(nodes) == 0 {
		return "", fmt.Errorf("no nodes on the ring")
	}
	prompt := promptui.Select{
		Label: "Select node",
		Items: nodes,
	}
	_, node, err := prompt.Run()
	return node, err
}

func (cli *CLI) PerformInsert(params []string) {
	row := params
	if len(row) == 2 {
		row = append(row, time.Now().UTC().Format(time.RFC3339))
	}
	if err := cli.manager.Insert(row); err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	fmt.Println("Inserted " + row[0])
}

func (cli *CLI) PerformGet(id string) {
	recs, err := cli.manager.Get(id)
	if err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	if len(recs) == 0 {
		fmt.Println("No records for " + id)
		return
	}

	t := table.NewWriter()
	schema := cli.manager.Schema()
	header := table.Row{}
	for _, f := range schema {
		header = append(header, f)
	}
	t.AppendHeader(header)
	for _, rec := range recs {
		t.AppendRow(table.Row{rec.ID, rec.Data, rec.CreatedAt})
	}
	fmt.Println(t.Render())
}

func (cli *CLI) PerformDel(id string) {
	if err := cli.manager.Delete(id); err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	fmt.Println("Deleted " + id)
}

func (cli *CLI) PerformLocate(id string) {
	node, err := cli.manager.Locate(id)
	if err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	fmt.Println(id + " belongs to " + node)
}

func (cli *CLI) PrintStats() {
	host, err := cluster.GetHostStats()
	if err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Memory Used", "Memory Free", "Memory Total", "CPU User", "CPU System", "CPU Idle"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%d MB", host.MemoryUsed/1024/1024),
		fmt.Sprintf("%d MB", host.MemoryFree/1024/1024),
		fmt.Sprintf("%d MB", host.MemoryTotal/1024/1024),
		fmt.Sprintf("%.1f%%", host.CPUUser),
		fmt.Sprintf("%.1f%%", host.CPUSystem),
		fmt.Sprintf("%.1f%%", host.CPUIdle),
	})
	fmt.Println(t.Render())

	nodes, err := cli.manager.NodeStatsSnapshot()
	if err != nil {
		fmt.Println("Error: " + err.Error())
		return
	}
	nt := table.NewWriter()
	nt.AppendHeader(table.Row{"Node", "Records"})
	for _, ns := range nodes {
		nt.AppendRow(table.Row{ns.Node, ns.Records})
	}
	fmt.Println(nt.Render())
}

func (cli *CLI) Seed(param string) {
	n, err := strconv.Atoi(param)
	if err != nil || n <= 0 {
		fmt.Println("number-of-records must be a positive integer")
		return
	}
	for i := 0; i < n; i++ {
		id := uuid.New().String()
		row := []string{id, "seed-" + strconv.Itoa(i), time.Now().UTC().Format(time.RFC3339)}
		if err := cli.manager.Insert(row); err != nil {
			fmt.Println("Error: " + err.Error())
			return
		}
	}
	fmt.Printf("Inserted %d records\n", n)
}

func (cli *CLI) Shutdown() {
	cli.manager.Close()
	cli.store.Close()
}
