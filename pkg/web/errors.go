package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/chainrun/chainrun/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem, problems.ProblemMediaType)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem, problems.ProblemMediaType)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem, problems.ProblemMediaType)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem, problems.ProblemMediaType)
}

// handleServiceError maps service layer errors to problem responses:
// definition errors to 400, missing entities to 404, state conflicts to 409,
// everything else to 500 without exposing details.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFoundError(err):
		return notFound(c, err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
