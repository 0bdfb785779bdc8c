package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var uploadContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type UploadOptions struct {
	GlobalOptions
}

func NewCmdUpload() *cobra.Command {
	o := &UploadOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CV (PDF, DOCX or XLSX).",
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

func (o *UploadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
}

func (o *UploadOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	contentType, ok := uploadContentTypes[ext]
	if !ok {
		contentType = mime.TypeByExtension(ext)
	}

	resp, err := o.Client().Upload(ctx, path, contentType, data)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
