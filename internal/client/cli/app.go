// Package cli implements the webxfer command line: send, receive and status.
package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/webxfer/internal/client/client"
	"github.com/dmitrijs2005/webxfer/internal/client/config"
	"github.com/dmitrijs2005/webxfer/internal/client/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

type App struct {
	v *viper.Viper

	// newAPI dials the server; tests replace it.
	newAPI func(cfg *config.Config) (services.TransferAPI, func() error, error)
	// stdoutIsTerminal reports whether stdout is a TTY.
	stdoutIsTerminal func() bool
}

func NewApp(v *viper.Viper) *App {
	return &App{
		v: v,
		newAPI: func(cfg *config.Config) (services.TransferAPI, func() error, error) {
			c, err := client.NewGRPCClient(cfg.ServerEndpointAddr, "")
			if err != nil {
				return nil, nil, err
			}
			return c, c.Close, nil
		},
		stdoutIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// RootCmd builds the command tree with persistent flags bound to viper.
func (a *App) RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webxfer",
		Short:         "Share files end-to-end encrypted",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("server", "s", "", "gRPC server address (default 127.0.0.1:50051)")
	root.PersistentFlags().String("base-url", "", "public URL used in share links")
	root.PersistentFlags().Duration("timeout", 0, "command timeout")

	a.v.BindPFlag(config.KeyServer, root.PersistentFlags().Lookup("server"))
	a.v.BindPFlag(config.KeyBaseURL, root.PersistentFlags().Lookup("base-url"))
	a.v.BindPFlag(config.KeyTimeout, root.PersistentFlags().Lookup("timeout"))

	root.AddCommand(a.sendCmd(), a.receiveCmd(), a.statusCmd())
	return root
}

// withService loads the config, dials the server and runs fn under the
// configured timeout.
func (a *App) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *services.TransferService) error) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	api, closeFn, err := a.newAPI(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	return fn(ctx, services.NewTransferService(api, cfg.BaseURL))
}
