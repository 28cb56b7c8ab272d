// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/miqcheck/cmd/miqcheck/handlers"
	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/logging"
)

// Global flag names. Each is also read from MIQ_<NAME>, except user which
// follows the config package and reads MIQ_USERNAME.
const (
	flagConfig      = "config"
	flagURL         = "url"
	flagUser        = "user"
	flagPassword    = "password"
	flagToken       = "token"
	flagInsecure    = "insecure"
	flagVerbose     = "verbose"
	flagPushgateway = "pushgateway"
)

// Root returns the root command for the miqcheck CLI.
//
// The root command carries the connection flags shared by every subcommand
// and installs the logger into the command context before any of them run.
func Root() *cobra.Command {
	v := viper.New()
	sync := func() {}

	cmd := &cobra.Command{
		Use:           "miqcheck",
		Short:         "Wait on and inspect a ManageIQ appliance through its REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, flush, err := logging.New(v.GetBool(flagVerbose))
			if err != nil {
				return err
			}
			sync = flush
			cmd.SetContext(logging.IntoContext(cmd.Context(), log))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "Path to configuration file")
	flags.String(flagURL, "", "Appliance URL, e.g. https://miq.example.com")
	flags.StringP(flagUser, "u", "", "User name for basic authentication")
	flags.StringP(flagPassword, "p", "", "Password for basic authentication")
	flags.String(flagToken, "", "API token, used instead of user and password")
	flags.Bool(flagInsecure, false, "Skip TLS certificate verification")
	flags.BoolP(flagVerbose, "v", false, "Log every poll attempt")
	flags.String(flagPushgateway, "", "Push poll metrics to this Prometheus Pushgateway")

	bindFlags(v, cmd)

	cmd.AddCommand(Wait(v))
	cmd.AddCommand(Info(v))
	cmd.AddCommand(Query(v))
	cmd.AddCommand(Requests(v))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	v.SetEnvPrefix("miq")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, name := range []string{flagConfig, flagURL, flagPassword, flagToken, flagVerbose, flagPushgateway} {
		_ = v.BindEnv(name)
		_ = v.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}
	_ = v.BindEnv(flagUser, config.EnvUsername)
	_ = v.BindPFlag(flagUser, cmd.PersistentFlags().Lookup(flagUser))
	_ = v.BindEnv(flagInsecure, config.EnvInsecure)
	_ = v.BindPFlag(flagInsecure, cmd.PersistentFlags().Lookup(flagInsecure))
}

// globals snapshots the bound settings for a handler call.
func globals(v *viper.Viper) handlers.Globals {
	return handlers.Globals{
		ConfigPath:  v.GetString(flagConfig),
		URL:         v.GetString(flagURL),
		Username:    v.GetString(flagUser),
		Password:    v.GetString(flagPassword),
		Token:       v.GetString(flagToken),
		InsecureTLS: v.GetBool(flagInsecure),
		Pushgateway: v.GetString(flagPushgateway),
	}
}
