package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/miqcheck/cmd/miqcheck/handlers"
)

// Requests returns the parent command for automation request helpers.
func Requests(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Work with automation requests",
	}
	cmd.AddCommand(requestsWait(v))
	return cmd
}

func requestsWait(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "wait <id>...",
		Short: "Wait until automation requests finish",
		Long: `Wait until every given automation request reaches request_state "finished"
and report its status. The budget and poll delay come from
MIQ_TIMEOUT_REQUESTS and MIQ_POLL_REQUESTS.

Examples:
  miqcheck requests wait 12 13 14`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RequestsWait(cmd.Context(), cmd.OutOrStdout(), globals(v), args)
		},
	}
}
