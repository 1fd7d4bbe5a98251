package flags

import (
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

// Command line flags of the light client shell.
var (
	// TestnetFlag selects the testnet deployment configuration.
	TestnetFlag = cli.BoolFlag{
		Name:  "testnet",
		Usage: "Track the source chain testnet",
	}

	// FakenetFlag selects the local testing configuration.
	FakenetFlag = cli.BoolFlag{
		Name:  "fakenet",
		Usage: "Track a local fake network",
	}

	// MaxBlocksFlag overrides the retained-history cap.
	MaxBlocksFlag = cli.Uint64Flag{
		Name:  "max-blocks",
		Usage: "Maximum number of retained non-trivial block heights",
	}

	// VerbosityFlag sets the logging level (0=panic .. 6=trace).
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity",
		Value: 4,
	}

	// SentryDSNFlag enables error reporting to a sentry endpoint.
	SentryDSNFlag = cli.StringFlag{
		Name:  "sentry-dsn",
		Usage: "Sentry DSN for error reporting (disabled if empty)",
	}
)

// NewApp creates the CLI application shell around the light client.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "cfxlight"
	app.Usage = "Conflux PoS light client"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = []cli.Flag{
		TestnetFlag,
		FakenetFlag,
		MaxBlocksFlag,
		VerbosityFlag,
		SentryDSNFlag,
	}
	return app
}
