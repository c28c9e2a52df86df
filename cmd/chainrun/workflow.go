package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/chainrun/chainrun/pkg/cmd"
	"github.com/chainrun/chainrun/pkg/log"
	"github.com/chainrun/chainrun/pkg/services"
	"github.com/chainrun/chainrun/pkg/yamlio"
)

func validateWorkflow(command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return errors.New("usage: chainrun workflow validate <file>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	workflow, err := yamlio.Import(data)
	if err != nil {
		return err
	}

	fmt.Printf("%s: valid (%d components, %d connections)\n", path, len(workflow.Components), len(workflow.Connections))

	return nil
}

func exportWorkflow(ctx context.Context, command *cli.Command) error {
	workflowID := command.Args().First()
	if workflowID == "" {
		return errors.New("usage: chainrun workflow export <workflow-id>")
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

	workflowService := services.NewWorkflow(persistence)

	workflow, err := workflowService.FetchByID(ctx, workflowID)
	if err != nil {
		return err
	}

	out, err := yamlio.Export(workflow)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(out)

	return err
}

func importWorkflow(ctx context.Context, command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return errors.New("usage: chainrun workflow import <file>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	workflow, err := yamlio.Import(data)
	if err != nil {
		return err
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

	workflowService := services.NewWorkflow(persistence)

	// Replace the stored definition when the document names an existing
	// workflow, create otherwise.
	if workflow.ID != "" {
		existing, err := workflowService.FetchByID(ctx, workflow.ID)
		if err != nil && !errors.Is(err, services.ErrWorkflowNotFound) {
			return err
		}

		if existing != nil {
			// Activation state is operational, not part of the document.
			workflow.Active = existing.Active

			updated, err := workflowService.Update(ctx, workflow.ID, workflow)
			if err != nil {
				return err
			}

			fmt.Printf("updated workflow %s (%s)\n", updated.ID, updated.Name)

			return nil
		}
	}

	created, err := workflowService.Create(ctx, workflow)
	if err != nil {
		return err
	}

	fmt.Printf("created workflow %s (%s)\n", created.ID, created.Name)

	return nil
}
