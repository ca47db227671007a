package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/webxfer/internal/client/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var errBinaryToTerminal = errors.New("refusing to write binary data to a terminal; use -o FILE or --force")

const fallbackName = "download.bin"

func (a *App) receiveCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:     "receive <token|link>",
		Aliases: []string{"r", "get"},
		Short:   "Download and decrypt a shared file",
		Long: "Download and decrypt a shared file. This consumes one download.\n" +
			"Without -o the file is saved under its original name in the current directory; -o - writes to stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := services.ParseShare(args[0])
			if err != nil {
				return err
			}

			if output != "" && output != "-" && !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s: %w", output, fs.ErrExist)
				}
			}

			return a.withService(cmd, func(ctx context.Context, svc *services.TransferService) error {
				got, err := svc.Receive(ctx, token)
				if err != nil {
					return err
				}

				if output == "-" {
					if a.stdoutIsTerminal() && !force && !isText(got.Content) {
						return errBinaryToTerminal
					}
					_, err := cmd.OutOrStdout().Write(got.Content)
					return err
				}

				path := output
				if path == "" {
					path = safeName(got.Metadata.Name)
				}
				if err := writeFile(path, got.Content, force); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s, %d bytes)\n", path, got.Metadata.Type, len(got.Content))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, or - for stdout")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and allow binary output to a terminal")

	return cmd
}

func isText(b []byte) bool {
	return strings.HasPrefix(mimetype.Detect(b).String(), "text/")
}

// safeName keeps only the last element of the sender-supplied name.
func safeName(name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if name == "/" || name == "." || name == "" {
		return fallbackName
	}
	return name
}

func writeFile(path string, content []byte, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
