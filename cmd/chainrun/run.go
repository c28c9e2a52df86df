package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/chainrun/chainrun/pkg/cmd"
	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/log"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/services"
)

// executeRun creates a run and drives it to completion in-process, printing
// the per-component outcome. Events go over an in-memory gochannel bus.
func executeRun(ctx context.Context, command *cli.Command) error {
	workflowID := command.Args().First()
	if workflowID == "" {
		return errors.New("usage: chainrun run <workflow-id>")
	}

	startID := command.String("start")
	endID := command.String("end")

	if (startID == "") != (endID == "") {
		return errors.New("--start and --end must be used together")
	}

	logger := log.WithModule("chainrun")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus("gochannel", "chainrun", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	eng := engine.New(persistence, eventBus, engine.WithLogger(logger))
	runService := services.NewRun(persistence, nil, eng)

	validationEnabled := command.Bool("validation")

	var run *models.Run

	if startID != "" {
		run, err = runService.StartSubRun(ctx, workflowID, startID, endID,
			!command.Bool("exclude-start"), !command.Bool("exclude-end"), validationEnabled)
	} else {
		run, err = runService.StartFullRun(ctx, workflowID, validationEnabled)
	}

	if err != nil {
		return err
	}

	if !run.Status.IsTerminal() {
		run, err = runService.Execute(ctx, run.ID)
		if err != nil {
			return err
		}
	}

	status, err := runService.GetRunStatus(ctx, run.ID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s\n", run.ID, run.Status)

	for _, component := range status.Components {
		line := fmt.Sprintf("  [%d] %s (%s): %s", component.Order, component.ComponentName, component.ComponentID, component.State)
		if component.RetryCount > 0 {
			line += fmt.Sprintf(" (retries: %d)", component.RetryCount)
		}

		if component.LastError != "" {
			line += " - " + component.LastError
		}

		fmt.Println(line)
	}

	if run.Status != models.RunStatusCompleted {
		return fmt.Errorf("run finished with status %s", run.Status)
	}

	return nil
}
