package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pagesheet/common"
	"pagesheet/config"
	"pagesheet/misc"
	"pagesheet/state"
)

// setup runs after command line is parsed and before any command. Help and
// version requests have no arguments and need nothing.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	configFile := cmd.String("config")
	if err := loadConfig(env, configFile, cmd.String("profile")); err != nil {
		return ctx, err
	}

	var err error
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		storeConfig(env, configFile)
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started",
		zap.Strings("args", os.Args),
		zap.String("ver", misc.GetVersion()),
		zap.String("runtime", runtime.Version()),
		zap.String("hash", misc.GetGitHash()))
	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)", zap.Stringer("profile", env.Cfg.Sheet.Profile))
	}
	return ctx, nil
}

func loadConfig(env *state.LocalEnv, file, profile string) (err error) {
	if env.Cfg, err = config.LoadConfiguration(file); err != nil {
		return fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if len(profile) == 0 {
		return nil
	}
	if env.Cfg.Sheet.Profile, err = common.ParseProfile(profile); err != nil {
		return fmt.Errorf("unable to use requested profile: %w", err)
	}
	return nil
}

// storeConfig puts effective configuration into debug report.
func storeConfig(env *state.LocalEnv, file string) {
	data, err := config.Dump(env.Cfg)
	if err != nil {
		return
	}
	name := "config/default.yaml"
	if len(file) > 0 {
		name = "config/" + filepath.Base(file)
	}
	env.Rpt.StoreData(name, data)
}

// teardown runs after command completes even when it failed. Once logger is
// synced errors could only go to stderr.
func teardown(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()

	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	if env.Cfg != nil {
		err = multierr.Append(err, removeEmptyPanicLog(env.Cfg.Logging.FileLogger.Destination))
	}
	return err
}

// removeEmptyPanicLog cleans crash output file created next to the log when
// program did not crash.
func removeEmptyPanicLog(logFile string) error {
	if len(logFile) == 0 {
		return nil
	}
	debug.SetCrashOutput(nil, debug.CrashOptions{})
	name := filepath.Join(filepath.Dir(logFile), misc.GetAppName()+"-panic.log")
	if fi, err := os.Stat(name); err != nil || fi.Size() != 0 {
		return nil
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("unable to remove empty panic log file '%s': %w", name, err)
	}
	return nil
}

// errLogged is set when command error made it into the log.
var errLogged bool

func logError(ctx context.Context, _ *cli.Command, err error) {
	if env := state.EnvFromContext(ctx); env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errLogged = true
	}
}

func passUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func unknownCommand(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}
