package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/log"
	"github.com/cadenzahq/cadenza/pkg/scheduler"
	"github.com/cadenzahq/cadenza/pkg/template"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "cadenza-scheduler",
		Usage:                 "Advance due sequence enrollments on a cron cadence",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the AI budget gate (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression for the enrollment tick",
				Value:   "* * * * *",
				Sources: cli.EnvVars("SCHEDULER_CRON"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Cadenza scheduler")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			resolver := template.NewResolver()
			orchestrator := cmd.NewAIOrchestrator(store, resolver, command.String("redis-url"), logger)
			registry := cmd.NewRegistry(logger)

			statusPub, sub := cmd.NewChannel(command.String("event-bus"), logger)
			bus := eventbus.NewWatermillEventBus(statusPub, sub)

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			deps := cmd.NewDeps(store, statusPub, bus, orchestrator, resolver, logger)

			sched := scheduler.NewScheduler(store, registry, deps, resolver, command.String("cron"), logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Scheduler started", "cron", command.String("cron"))

			<-ctx.Done()

			logger.Info("Scheduler shutting down")

			return sched.Stop(context.Background())
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
