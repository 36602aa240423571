// Package main implements the lottery node. The node runs a single ledger
// with the bank, the randomness coordinator and the raffle, alongside the
// workers that close the rounds and fulfill the randomness requests.
//
//	lottery --config /tmp/node start --faucet --metrics-addr 127.0.0.1:9100
//	lottery --config /tmp/node account new --key /tmp/alice.key
//	lottery --config /tmp/node bank mint --key /tmp/alice.key --amount 100
//	lottery --config /tmp/node raffle enter --key /tmp/alice.key
//	lottery --config /tmp/node raffle info
//
// The environment can be set in a .env file of the working directory.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.dedis.ch/lottery"
	keeper "go.dedis.ch/lottery/automation/keeper/controller"
	"go.dedis.ch/lottery/cli/node"
	raffle "go.dedis.ch/lottery/contracts/raffle/controller"
	bank "go.dedis.ch/lottery/core/bank/controller"
	ledger "go.dedis.ch/lottery/core/ledger/controller"
	db "go.dedis.ch/lottery/core/store/kv/controller"
	metrics "go.dedis.ch/lottery/metrics/controller"
	vrf "go.dedis.ch/lottery/randomness/vrf/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	lottery.Logger = lottery.Logger.Level(lottery.ParseLevel(os.Getenv(lottery.EnvLogLevel)))

	err = run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{})
}

func runWithCfg(args []string, cfg config) error {
	opts := []node.Option{node.WithVersion(lottery.Version)}

	if cfg.Channel != nil {
		opts = append(opts, node.WithSignals(cfg.Channel))
	}
	if cfg.Writer != nil {
		opts = append(opts, node.WithOutput(cfg.Writer))
	}

	controllers := []node.Initializer{
		db.NewController(),
		ledger.NewController(),
		bank.NewController(),
		vrf.NewController(),
		raffle.NewController(),
		keeper.NewController(),
		metrics.NewController(),
	}

	builder := node.NewBuilder(controllers, opts...)

	app := builder.Build()

	return app.Run(args)
}
