package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/miqcheck/cmd/miqcheck/handlers"
)

// Wait returns the command that polls one resource until an attribute
// satisfies a condition.
//
// Required flags:
//
//	--field, -f: Attribute to watch
//
// Optional flags:
//
//	--equals, -e: Value the attribute must reach (default: any truthy value)
//	--timeout, -t: Wall-clock budget (default: 5m)
//	--delay, -d: Delay between attempts (default: 5s)
//	--backoff: Delay multiplier applied after each failed attempt
//	--max-delay: Upper bound for the delay when backing off
//	--reload-on-retry: Reload in the retry hook instead of inside the check
//	--json: Output in JSON format
func Wait(v *viper.Viper) *cobra.Command {
	var opts handlers.WaitOptions

	cmd := &cobra.Command{
		Use:   "wait <collection>/<id>",
		Short: "Wait until a resource attribute reaches a value",
		Long: `Poll a resource until one of its attributes satisfies a condition.

Without --equals the wait ends as soon as the attribute holds a truthy
value: non-empty, non-zero and not false. The resource may be given as
collection/id, as an /api path or as a full href.

Examples:
  # Wait for a VM to power on
  miqcheck wait vms/42 --field power_state --equals on

  # Wait for a request to finish, backing off up to one minute
  miqcheck wait automation_requests/7 -f request_state -e finished --backoff 2 --max-delay 1m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Wait(cmd.Context(), cmd.OutOrStdout(), globals(v), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Field, "field", "f", "", "Attribute to watch")
	cmd.Flags().StringVarP(&opts.Equals, "equals", "e", "", "Value the attribute must reach")
	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", 5*time.Minute, "Wall-clock budget for the wait")
	cmd.Flags().DurationVarP(&opts.Delay, "delay", "d", 5*time.Second, "Delay between attempts")
	cmd.Flags().Float64Var(&opts.Backoff, "backoff", 0, "Delay multiplier applied after each failed attempt")
	cmd.Flags().DurationVar(&opts.MaxDelay, "max-delay", 0, "Upper bound for the delay when backing off")
	cmd.Flags().BoolVar(&opts.ReloadOnRetry, "reload-on-retry", false, "Reload the resource between attempts instead of inside each check")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}
