// Package main runs the API, the scheduler and a worker in one process. With the memory
// store and the gochannel bus it needs no external services.
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
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:                  "nurture",
		Usage:                 "Contact workflow automation",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "run",
				Aliases: []string{"r"},
				Usage:   "Start the API, the scheduler and a worker together",
				Flags: pkgcmd.Flags(pkgcmd.CommonFlags(), pkgcmd.ActionFlags(), pkgcmd.WorkerFlags(), pkgcmd.PollerFlags(), []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   9091,
						Sources: cli.EnvVars("PORT"),
					},
				}),
				Action: run,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithModule("nurture").Error("nurture stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("nurture")

	rt, err := pkgcmd.NewRuntime(ctx, command, "nurture", logger)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return pkgcmd.NewAPI(logger.With("component", "api"), rt).Start(groupCtx, command.Int("port"))
	})
	group.Go(func() error {
		return pkgcmd.RunWorker(groupCtx, command, rt, logger.With("component", "worker"))
	})
	group.Go(func() error {
		return pkgcmd.RunPoller(groupCtx, command, rt, logger.With("component", "scheduler"))
	})

	return group.Wait()
}
