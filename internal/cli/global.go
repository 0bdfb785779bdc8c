package cli

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"alfredoptarigan/cv-formatter/internal/client"
)

type GlobalOptions struct {
	ServerUrl string
	Token     string
}

func DefaultGlobalOptions() GlobalOptions {
	server := os.Getenv("CVCTL_SERVER")
	if server == "" {
		server = "http://localhost:3000"
	}
	return GlobalOptions{
		ServerUrl: server,
		Token:     os.Getenv("CVCTL_TOKEN"),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server")
	fs.StringVarP(&o.Token, "token", "t", o.Token, "Bearer token (defaults to $CVCTL_TOKEN)")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.Token == "" {
		return errors.New("a token is required, pass --token or set CVCTL_TOKEN")
	}
	return nil
}

func (o *GlobalOptions) Client() *client.Client {
	return client.New(o.ServerUrl, o.Token)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
