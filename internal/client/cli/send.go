package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/client/services"
	"github.com/spf13/cobra"
)

func (a *App) sendCmd() *cobra.Command {
	var (
		maxDownloads int64
		expires      time.Duration
		notify       string
	)

	cmd := &cobra.Command{
		Use:     "send <file>",
		Aliases: []string{"s", "up"},
		Short:   "Encrypt a file and upload it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *services.TransferService) error {
				res, err := svc.Send(ctx, services.SendOptions{
					Name:         filepath.Base(path),
					Content:      content,
					ModTime:      info.ModTime(),
					MaxDownloads: maxDownloads,
					TTL:          expires,
					NotifyEmail:  notify,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Share link: %s\n", res.Link)
				fmt.Fprintf(out, "Token: %s\n", res.Token.Encode())
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&maxDownloads, "max-downloads", "n", 1, "number of allowed downloads")
	cmd.Flags().DurationVarP(&expires, "expires", "x", 0, "expire after this long (e.g. 24h); 0 means never")
	cmd.Flags().StringVar(&notify, "notify", "", "email address notified on first download")

	return cmd
}
