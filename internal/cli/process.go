package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"alfredoptarigan/cv-formatter/internal/client"
)

var supportedModels = []string{"gpt4", "claude", "gemini"}

type ProcessOptions struct {
	GlobalOptions

	Model       string
	Interval    time.Duration
	MaxAttempts int
}

func NewCmdProcess() *cobra.Command {
	o := &ProcessOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Interval:      client.DefaultInterval,
		MaxAttempts:   client.DefaultMaxAttempts,
	}
	cmd := &cobra.Command{
		Use:   "process CV_ID",
		Short: "Process a CV with a model and wait for the result.",
		Args:  cobra.ExactArgs(1),
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

func (o *ProcessOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Model, "model", "m", "gpt4", fmt.Sprintf("Model to use. One of: (%s).", strings.Join(supportedModels, ", ")))
	fs.DurationVar(&o.Interval, "interval", o.Interval, "Time between status checks")
	fs.IntVar(&o.MaxAttempts, "max-attempts", o.MaxAttempts, "Status checks before giving up")
}

func (o *ProcessOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	for _, m := range supportedModels {
		if m == o.Model {
			return nil
		}
	}
	return fmt.Errorf("model must be one of %s", strings.Join(supportedModels, ", "))
}

func (o *ProcessOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	poller := client.NewPoller(o.Client())
	poller.Interval = o.Interval
	poller.MaxAttempts = o.MaxAttempts

	session := client.NewSession(poller)
	defer session.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Processing %s with %s...\n", args[0], o.Model)
	out := <-session.Start(ctx, args[0], o.Model)

	if out.Kind != client.OutcomeCompleted {
		return fmt.Errorf("%s: %s", out.Kind, out.Message())
	}
	return printJSON(cmd.OutOrStdout(), out.Status)
}
