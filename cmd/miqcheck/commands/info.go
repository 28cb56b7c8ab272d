package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/miqcheck/cmd/miqcheck/handlers"
)

// Info returns the command that prints the API entry point.
func Info(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show appliance, product and identity information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Info(cmd.Context(), cmd.OutOrStdout(), globals(v), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
