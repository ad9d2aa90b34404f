package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "download":
		err = runDownload(args)
	case "ingestor":
		err = runIngestor(args)
	case "insights":
		err = runInsights(args)
	case "scaler":
		err = runScaler(args)
	case "simulation":
		err = runSimulation(args)
	case "wide-quoter":
		err = runWideQuoter(args)
	case "agent":
		err = runAgent(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "arkin: unknown subcommand %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "arkin %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `arkin: algorithmic trading platform core

Usage:
  arkin <subcommand> [flags]

Subcommands:
  download     fetch historical market data from tardis.dev
  ingestor     run a live market-data ingestor
  insights     generate feature insights from market data
  scaler       fit quantile/robust scalers from historical features
  simulation   backtest a strategy against recorded market data
  wide-quoter  run the wide-quoter execution strategy live
  agent        run the recurrent-model-driven strategy live

Run "arkin <subcommand> -h" for subcommand-specific flags.
`)
}
