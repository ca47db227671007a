package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/webxfer/internal/buildinfo"
	"github.com/dmitrijs2005/webxfer/internal/client/cli"
	"github.com/dmitrijs2005/webxfer/internal/client/config"
	"github.com/spf13/cobra"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewApp(config.NewViper(config.DefaultDirs()...)).RootCmd()
	root.Version = buildinfo.Version
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}

}
