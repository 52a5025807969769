package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"pagesheet/common"
	"pagesheet/misc"
	"pagesheet/probe"
	"pagesheet/split"
	"pagesheet/state"
)

func main() {
	os.Exit(run(os.Args))
}

// run executes command line and returns process exit code.
func run(args []string) int {
	// browser may be busy for a while, let interrupt cancel it
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	if err := app.Run(ctx, args); err != nil {
		if !errLogged {
			// logger is not ready yet or already closed
			fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "paged style sheet tool: splits large stylesheets and probes them in live browser",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          setup,
		After:           teardown,
		OnUsageError:    passUsageError,
		ExitErrHandler:  logError,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, DefaultText: "",
				Usage: "override configured sheet `PROFILE` (supported profiles: " + strings.Join(common.ProfileNames(), ", ") + ")"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "split",
				Usage:        "Splits stylesheet(s) into pages of limited capacity",
				OnUsageError: passUsageError,
				Action:       split.Run,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "capacity", Usage: "maximum number of rules per page, overrides configuration"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
					&cli.StringFlag{Name: "force-zip-cp",
						Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to css file(s) to process, following formats are supported:
        path to a file: "[path_to_file]file.css"
        path to a directory: "[path_to_directory]directory" - recursively process all files under directory (symbolic links are not followed)
        path to archive with path inside archive to a particular css file: "[path_to_archive]archive.zip[path_in_archive]/file.css"
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]" - recursively process all css files under archive path

	Files are processed in natural order of their names. When working on
	archive recursively only css files will be considered, processing of
	archives inside archives is not supported.

DESTINATION:
    always a path, output file names will be derived from source names
    if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "probe",
				Usage:        "Inserts stylesheet rules into live browser and reports rejected ones",
				OnUsageError: passUsageError,
				Action:       probe.Run,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "capacity", Usage: "maximum number of rules per page, overrides configuration"},
					&cli.BoolFlag{Name: "fast", Value: true, Usage: "insert rules through rule insertion API, with --fast=false rules are added as text fragments which host never rejects"},
				},
				ArgsUsage: "SOURCE",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to css file

Browser is started (or connected to) according to "browser" section of the
configuration. Rejected rules are put into debug report (--debug). Unlike
profile setting insertion is native unless --fast=false is given.
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: passUsageError,
				Action:       dumpConfig,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}
}
