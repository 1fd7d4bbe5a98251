package launcher

import (
	"fmt"

	"github.com/Conflux-Chain/conflux-light-contracts/flags"
	"github.com/Conflux-Chain/conflux-light-contracts/params"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"
)

// makeConfig resolves the deployment configuration from command line flags.
func makeConfig(ctx *cli.Context) (params.Config, error) {
	if ctx.GlobalBool(flags.TestnetFlag.Name) && ctx.GlobalBool(flags.FakenetFlag.Name) {
		return params.Config{}, fmt.Errorf("flags --%s and --%s are mutually exclusive", flags.TestnetFlag.Name, flags.FakenetFlag.Name)
	}

	cfg := params.MainNetConfig()
	switch {
	case ctx.GlobalBool(flags.TestnetFlag.Name):
		cfg = params.TestNetConfig()
	case ctx.GlobalBool(flags.FakenetFlag.Name):
		cfg = params.FakeNetConfig()
	}

	if ctx.GlobalIsSet(flags.MaxBlocksFlag.Name) {
		cfg.MaxBlocks = ctx.GlobalUint64(flags.MaxBlocksFlag.Name)
		if cfg.MaxBlocks == 0 {
			return params.Config{}, fmt.Errorf("flag --%s must be positive", flags.MaxBlocksFlag.Name)
		}
	}
	return cfg, nil
}

// makeLogger builds the process logger: verbosity from flags and, when a
// DSN is configured, a sentry hook for error-level reports.
func makeLogger(ctx *cli.Context) (*logrus.Logger, error) {
	logger := logrus.New()

	verbosity := ctx.GlobalInt(flags.VerbosityFlag.Name)
	if verbosity < int(logrus.PanicLevel) || verbosity > int(logrus.TraceLevel) {
		return nil, fmt.Errorf("flag --%s out of range", flags.VerbosityFlag.Name)
	}
	logger.SetLevel(logrus.Level(verbosity))

	if dsn := ctx.GlobalString(flags.SentryDSNFlag.Name); dsn != "" {
		hook, err := logrus_sentry.NewSentryHook(dsn, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		logger.Hooks.Add(hook)
	}
	return logger, nil
}
