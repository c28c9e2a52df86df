// Package main provides the chainrun operator CLI.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/chainrun/chainrun/pkg/log"
)

const version = "0.1.0"

func main() {
	databaseURLFlag := &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}

	logLevelFlag := &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "warn",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}

	command := &cli.Command{
		Name:                  "chainrun",
		Usage:                 "Manage and execute chained integration workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "workflow",
				Aliases: []string{"w"},
				Usage:   "Manage workflow definitions",
				Commands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "Validate a workflow YAML file",
						ArgsUsage: "<file>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return validateWorkflow(cmd)
						},
					},
					{
						Name:      "export",
						Usage:     "Export a workflow as YAML to stdout",
						ArgsUsage: "<workflow-id>",
						Flags:     []cli.Flag{databaseURLFlag, logLevelFlag},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							log.Setup(cmd.String("log-level"))

							return exportWorkflow(ctx, cmd)
						},
					},
					{
						Name:      "import",
						Usage:     "Import a workflow YAML file",
						ArgsUsage: "<file>",
						Flags:     []cli.Flag{databaseURLFlag, logLevelFlag},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							log.Setup(cmd.String("log-level"))

							return importWorkflow(ctx, cmd)
						},
					},
				},
			},
			{
				Name:      "run",
				Aliases:   []string{"r"},
				Usage:     "Execute a workflow synchronously in-process",
				ArgsUsage: "<workflow-id>",
				Flags: []cli.Flag{
					databaseURLFlag,
					logLevelFlag,
					&cli.BoolFlag{
						Name:  "validation",
						Usage: "Enable config validation for this run",
					},
					&cli.StringFlag{
						Name:  "start",
						Usage: "Start component ID for a sub-range run",
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "End component ID for a sub-range run",
					},
					&cli.BoolFlag{
						Name:  "exclude-start",
						Usage: "Exclude the start component from the range",
					},
					&cli.BoolFlag{
						Name:  "exclude-end",
						Usage: "Exclude the end component from the range",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					log.Setup(cmd.String("log-level"))

					return executeRun(ctx, cmd)
				},
			},
			{
				Name:  "version",
				Usage: "Print the chainrun version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println("chainrun " + version)

					return nil
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
