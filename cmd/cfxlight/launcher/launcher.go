// Package launcher wires the command line shell around the light client
// library: flag parsing, logging setup, and configuration selection. All
// verification logic lives in the library packages; this surface only
// routes requests into them.
package launcher

import (
	"github.com/Conflux-Chain/conflux-light-contracts/flags"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"
)

var app = flags.NewApp()

func init() {
	app.Action = run
}

// Launch parses flags and runs the shell.
func Launch(args []string) error {
	return app.Run(args)
}

func run(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}

	logger, err := makeLogger(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"network":   cfg.Name,
		"networkID": cfg.NetworkID,
		"maxBlocks": cfg.MaxBlocks,
	}).Info("Light client configured")
	return nil
}
