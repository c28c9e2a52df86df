package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/chainrun/chainrun/pkg/cmd"
	"github.com/chainrun/chainrun/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "chainrun-runner",
		EnableShellCompletion: true,
		Usage:                 "Start runners to execute workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "runner-id",
				Aliases: []string{"id"},
				Usage:   "Custom runner ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUNNER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
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

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("chainrun-runner").With("runner_id", runnerID)

			logger.InfoContext(ctx, "Initializing Chainrun Runner")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "chainrun-runner", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			runner := NewRunner(runnerID, persistence, eventBus, logger)

			err = runner.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start runner", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
