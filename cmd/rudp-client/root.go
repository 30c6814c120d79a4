package main

import (
	"io"
	"time"

	"github.com/backkem/rudp/pkg/client"
	"github.com/pion/logging"
	"github.com/spf13/cobra"
)

// options holds the flags shared by all subcommands.
type options struct {
	ConfigFile  string
	Tick        time.Duration
	LogLevel    string
	LogFile     string
	MaxAttempts int

	settings fileConfig
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&options{})
}

func newRootCmdWith(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rudp-client",
		Short:        "Connect to reliable UDP servers and exchange messages",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: o.load,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.ConfigFile, "config", "c", "", "YAML config file")
	flags.DurationVar(&o.Tick, "tick", defaultTick, "tick interval")
	flags.StringVar(&o.LogLevel, "log-level", "info", "log level (disabled, error, warn, info, debug, trace)")
	flags.StringVar(&o.LogFile, "log-file", "", "log to a rotating file instead of stderr")
	flags.IntVar(&o.MaxAttempts, "max-attempts", 0, "send attempts per reliable message (0: client default)")

	cmd.AddCommand(newConnectCmd(o))
	cmd.AddCommand(newDiscoverCmd(o))

	return cmd
}

// load reads the config file and lets explicitly set flags override it.
func (o *options) load(cmd *cobra.Command, args []string) error {
	settings := defaultFileConfig()
	if o.ConfigFile != "" {
		loaded, err := loadConfig(o.ConfigFile)
		if err != nil {
			return err
		}
		settings = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("tick") {
		settings.Tick = o.Tick
	}
	if flags.Changed("log-level") {
		settings.LogLevel = o.LogLevel
	}
	if flags.Changed("log-file") {
		settings.LogFile = o.LogFile
	}
	if flags.Changed("max-attempts") {
		settings.MaxSendAttempts = o.MaxAttempts
	}

	if settings.Tick <= 0 {
		settings.Tick = defaultTick
	}
	if _, err := parseLogLevel(settings.LogLevel); err != nil {
		return err
	}

	o.settings = settings
	return nil
}

// loggerFactory builds the logger factory for the loaded settings.
// The returned closer flushes the log file, if any.
func (o *options) loggerFactory(stderr io.Writer) (logging.LoggerFactory, io.Closer, error) {
	return newLoggerFactory(o.settings.LogLevel, o.settings.LogFile, stderr)
}

// clientConfig returns the client configuration for the loaded settings.
func (o *options) clientConfig(lf logging.LoggerFactory, handler client.EventHandler) client.Config {
	config := o.settings.clientConfig()
	config.LoggerFactory = lf
	config.EventHandler = handler
	return config
}
