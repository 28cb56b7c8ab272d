package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/miqcheck/cmd/miqcheck/handlers"
)

// Query returns the command that lists the records of a collection.
//
// Optional flags:
//
//	--filter: key=value pair every record must match (repeatable)
//	--attributes, -a: Attributes to print (default: name)
//	--json: Output in JSON format
func Query(v *viper.Viper) *cobra.Command {
	var opts handlers.QueryOptions

	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "List the records of a collection",
		Long: `List the records of a collection, optionally filtered by attribute values.

Examples:
  # All VMs
  miqcheck query vms

  # Running VMs with their vendor
  miqcheck query vms --filter power_state=on -a name,vendor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Query(cmd.Context(), cmd.OutOrStdout(), globals(v), args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "key=value pair every record must match")
	cmd.Flags().StringSliceVarP(&opts.Attributes, "attributes", "a", nil, "Attributes to print")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}
