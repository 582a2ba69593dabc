package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/idrelay/internal/config"
	"github.com/MrEthical07/idrelay/internal/logging"
)

const (
	logLevelKey   = "log.level"
	logFormatKey  = "log.format"
	logNoColorKey = "log.no_color"
)

// app carries state shared by every subcommand. Settings is populated by the
// root PersistentPreRunE.
type app struct {
	v          *viper.Viper
	configFile string

	settings *config.Settings
	logger   zerolog.Logger

	logOut io.Writer
	now    func() time.Time
}

func newApp() *app {
	return &app{
		v:      config.NewViper(),
		logger: log.Logger,
		logOut: os.Stderr,
		now:    time.Now,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "idrelay",
		Short: "Identity relay: provider login in, signed session cookie out",
		Long: `idrelay delegates login to an OAuth/OpenID Connect provider and issues its
own HS256 session credential, carried in the access_token cookie, valid for 24 hours.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.Init(s.Log.Level, s.Log.Format, s.Log.NoColor, a.logOut)
			if err != nil {
				return err
			}
			a.settings = s
			a.logger = logger
			if a.configFile != "" {
				logger.Debug().Msgf("using config file: %s", a.configFile)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "YAML config file (IDRELAY_* environment variables override it)")

	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = a.v.BindPFlag(logLevelKey, flags.Lookup("log-level"))

	flags.String("log-format", logging.FormatConsole, "Log format (console, json)")
	_ = a.v.BindPFlag(logFormatKey, flags.Lookup("log-format"))

	flags.Bool("no-color", false, "Disable color output")
	_ = a.v.BindPFlag(logNoColorKey, flags.Lookup("no-color"))

	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}
