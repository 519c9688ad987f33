// Package main provides the nurture API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pkgcmd "github.com/dukex/nurture/pkg/cmd"
	"github.com/dukex/nurture/pkg/log"
	cli "github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "nurture-api",
		Usage:                 "Manage workflows and ingest trigger events over HTTP",
		EnableShellCompletion: true,
		Flags: pkgcmd.Flags(pkgcmd.CommonFlags(), pkgcmd.ActionFlags(), []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		}),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("nurture-api")
			logger.InfoContext(ctx, "Initializing nurture API")

			rt, err := pkgcmd.NewRuntime(ctx, command, "nurture-api", logger)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return pkgcmd.NewAPI(logger, rt).Start(ctx, command.Int("port"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithModule("nurture-api").Error("API stopped", "error", err)
		os.Exit(1)
	}
}
