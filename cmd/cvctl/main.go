package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-formatter/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := NewCvctlCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func NewCvctlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cvctl [flags] [options]",
		Short: "cvctl uploads, processes and exports CVs.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdUpload())
	cmd.AddCommand(cli.NewCmdProcess())
	cmd.AddCommand(cli.NewCmdStatus())
	cmd.AddCommand(cli.NewCmdExport())
	cmd.AddCommand(cli.NewCmdSearch())

	return cmd
}
