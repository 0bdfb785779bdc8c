package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ExportOptions struct {
	GlobalOptions

	Kind   string
	Output string
}

func NewCmdExport() *cobra.Command {
	o := &ExportOptions{GlobalOptions: DefaultGlobalOptions(), Kind: "cv"}
	cmd := &cobra.Command{
		Use:   "export CV_ID",
		Short: "Download the formatted CV or registration form as DOCX.",
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

func (o *ExportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Kind, "kind", "k", o.Kind, "Document to export. One of: (cv, registration).")
	fs.StringVarP(&o.Output, "output", "o", "", "Output file (defaults to <CV_ID>_<kind>.docx)")
}

func (o *ExportOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Kind != "cv" && o.Kind != "registration" {
		return fmt.Errorf("kind must be one of cv, registration")
	}
	return nil
}

func (o *ExportOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	output := o.Output
	if output == "" {
		output = fmt.Sprintf("%s_%s.docx", args[0], o.Kind)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}

	if err := o.Client().Export(ctx, args[0], o.Kind, f); err != nil {
		f.Close()
		_ = os.Remove(output)
		return fmt.Errorf("exporting %s: %w", args[0], err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", output)
	return nil
}
