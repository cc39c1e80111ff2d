package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/wellness.report/internal/config"
	"github.com/banshee-data/wellness.report/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

// errUnknownCommand is returned by run for anything it cannot dispatch.
var errUnknownCommand = errors.New("unknown command")

func run(command string, args []string, stdout io.Writer) error {
	switch command {
	case "cluster":
		return runCluster(args, stdout)
	case "import":
		return runImport(args, stdout)
	case "serve":
		return runServe(args)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `wellness - group wellness centers by beneficiary volume

Usage: wellness <command> [options]

Commands:
  cluster    Cluster a centers/beneficiaries pair and write charts and tables
  import     Store a centers/beneficiaries pair in the dataset database
  serve      Run the HTTP API
  version    Show build information
  help       Show this help message

Examples:
  wellness cluster -centers centers.csv -beneficiaries beneficiaries.csv -html report.html
  wellness cluster -db wellness.db -dataset march -k 4 -csv assignments.csv
  wellness import -db wellness.db -name march -centers centers.csv -beneficiaries beneficiaries.csv
  wellness serve -listen :8080 -db wellness.db`)
}

// loadConfig reads an explicit config file, falls back to the repository
// defaults file when present, and otherwise uses built-in defaults.
func loadConfig(path string) (*config.ClusteringConfig, error) {
	if path != "" {
		return config.LoadClusteringConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadClusteringConfig(config.DefaultConfigPath)
	}
	return config.DefaultClusteringConfig(), nil
}
