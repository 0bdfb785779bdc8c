package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdStatus() *cobra.Command {
	o := DefaultGlobalOptions()
	cmd := &cobra.Command{
		Use:   "status CV_ID",
		Short: "Show the processing status of a CV.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd, &o, args[0])
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, o *GlobalOptions, id string) error {
	st, err := o.Client().Status(ctx, id)
	if err != nil {
		return fmt.Errorf("reading status of %s: %w", id, err)
	}
	return printJSON(cmd.OutOrStdout(), st)
}
