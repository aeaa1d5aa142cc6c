package cmd

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/osh/core"
	"github.com/josephlewis42/osh/core/config"
	"github.com/josephlewis42/osh/core/logger"
	"github.com/josephlewis42/osh/core/proc"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "osh",
	Short: "A small interactive shell",
	Long: `An interactive shell with history recall, I/O redirection, two stage
pipes and background jobs.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var diagnostics io.Writer = io.Discard
		if debug {
			diagnostics = cmd.ErrOrStderr()
		}
		appLogger := log.New(diagnostics, "[osh] ", 0)

		configuration, err := config.Load(cfgPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			appLogger.Printf("No configuration in %q, using defaults", cfgPath)
			configuration = config.DefaultConfig()
		case err != nil:
			return err
		}

		var events proc.EventRecorder
		logFd, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		if logFd != nil {
			defer logFd.Close()
			session := logger.NewJsonLinesLogRecorder(logFd).NewSession()
			appLogger.Printf("Recording events for session %s to %s", session.SessionID(), logFd.Name())
			events = session
		}

		shell, err := core.NewShell(configuration, core.IO{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		}, appLogger, events)
		if err != nil {
			return err
		}

		return shell.Run()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultDir(), "config path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write diagnostics to stderr")
}
