// Package main provides the nurture scheduler, which publishes due jobs on the event bus.
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
		Name:                  "nurture-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Claim due workflow steps and hand them to workers",
		Flags:                 pkgcmd.Flags(pkgcmd.CommonFlags(), pkgcmd.ActionFlags(), pkgcmd.PollerFlags()),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("nurture-scheduler")
			logger.InfoContext(ctx, "Initializing nurture scheduler")

			rt, err := pkgcmd.NewRuntime(ctx, command, "nurture-scheduler", logger)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return pkgcmd.RunPoller(ctx, command, rt, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithModule("nurture-scheduler").Error("Scheduler stopped", "error", err)
		os.Exit(1)
	}
}
