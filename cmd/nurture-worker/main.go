// Package main provides the nurture worker, which runs due steps and dispatches trigger
// events into enrollments.
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

func main() {
	cmd := &cli.Command{
		Name:                  "nurture-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute workflow steps",
		Flags:                 pkgcmd.Flags(pkgcmd.CommonFlags(), pkgcmd.ActionFlags(), pkgcmd.WorkerFlags()),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("nurture-worker")
			logger.InfoContext(ctx, "Initializing nurture worker")

			rt, err := pkgcmd.NewRuntime(ctx, command, "nurture-worker", logger)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return pkgcmd.RunWorker(ctx, command, rt, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithModule("nurture-worker").Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}
