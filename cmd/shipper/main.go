package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shipper-ci/shipper/cmd/cmdutils"
	releasecmd "github.com/shipper-ci/shipper/cmd/release"
	"github.com/shipper-ci/shipper/config"
	"github.com/shipper-ci/shipper/internal/style"
	"github.com/shipper-ci/shipper/internal/terminal"
)

var Version = "development"

func main() {
	rootCmd := &cobra.Command{
		Use:     "shipper",
		Short:   "Release-build orchestrator",
		Version: Version,
		Long: `Shipper turns a tagged source revision into a published release:
a reproducible build container, compiled artifacts, bundled dependency
license sources, a derived version, a generated changelog, and the
resulting images and archives pushed to durable storage.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if config.Global.Debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			term := terminal.Detect(config.Global.NoColor || terminal.IsCI())
			style.Init(term.ColorEnabled)
			if term.IsTerminal {
				log.Logger = log.Output(zerolog.ConsoleWriter{
					Out:        os.Stdout,
					TimeFormat: time.RFC3339,
					NoColor:    !term.ColorEnabled,
				})
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.Global.PipelineFile, "file", "f", "shipper.yaml", "pipeline description file")
	flags.StringVar(&config.Global.ProjectID, "project", "", "override the project identifier")
	flags.StringVarP(&config.Global.WorkDir, "workdir", "w", "", "run working directory (defaults to cwd)")
	flags.StringArrayVar(&config.Global.Substitutions, "substitution", nil, "parameter override as KEY=VALUE (repeatable)")
	flags.StringVar(&config.Global.CredentialsPath, "credentials", defaultCredentialsPath(), "storage credentials file")
	flags.StringVar(&config.Global.CredentialsProfile, "profile", "release", "credentials profile name")
	flags.DurationVar(&config.Global.Timeout, "timeout", 0, "total run timeout (overrides the description)")
	flags.BoolVar(&config.Global.Debug, "debug", false, "print debug level logs")
	flags.BoolVar(&config.Global.NoColor, "no-color", false, "disable colored output")

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	rootCmd.AddCommand(releasecmd.GetRootCmd(cmdutils.NewFactory()))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.shipper/credentials"
}
