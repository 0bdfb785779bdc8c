package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type SearchOptions struct {
	GlobalOptions

	Limit int
}

func NewCmdSearch() *cobra.Command {
	o := &SearchOptions{GlobalOptions: DefaultGlobalOptions(), Limit: 10}
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search processed CVs by meaning.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd, args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *SearchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.IntVarP(&o.Limit, "limit", "l", o.Limit, "Maximum number of CVs to return")
}

func (o *SearchOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	resp, err := o.Client().Search(ctx, strings.Join(args, " "), o.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "CV ID\tSCORE\tSNIPPET")
	for _, hit := range resp.Hits {
		snippet := strings.ReplaceAll(hit.Snippet, "\n", " ")
		if r := []rune(snippet); len(r) > 80 {
			snippet = string(r[:80]) + "..."
		}
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", hit.CVID, hit.Score, snippet)
	}
	return w.Flush()
}
