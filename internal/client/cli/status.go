package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/client/services"
	"github.com/spf13/cobra"
)

func (a *App) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <token|link>",
		Short: "Show remaining downloads and expiry without consuming a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := services.ParseShare(args[0])
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *services.TransferService) error {
				st, err := svc.Status(ctx, token)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Downloads remaining: %d\n", st.DownloadsRemaining)
				if st.ExpiresAt != nil {
					fmt.Fprintf(out, "Expires: %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
				} else {
					fmt.Fprintln(out, "Expires: never")
				}
				fmt.Fprintf(out, "Created: %s\n", st.CreatedAt.Local().Format(time.RFC1123))
				return nil
			})
		},
	}
}
