package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/monitor"
)

type baselineInput struct {
	Metric    string  `json:"metric"    validate:"required"`
	Threshold float64 `json:"threshold"`
	Operator  string  `json:"operator"  validate:"required,baselineop"`
	Severity  string  `json:"severity"  validate:"omitempty,alertseverity"`
	// Omitting active means enabled.
	Active *bool `json:"active"`
}

type setBaselinesRequest struct {
	Baselines []baselineInput `json:"baselines" validate:"required,min=1,dive"`
}

type evaluateBaselinesRequest struct {
	Metrics map[string]float64 `json:"metrics" validate:"required"`
}

func registerBaselineRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	api.Get("/baselines/defaults", func(c *fiber.Ctx) error {
		return c.JSON(monitor.DefaultBaselines(""))
	})

	models := api.Group("/models")

	models.Put("/:modelID/baselines", func(c *fiber.Ctx) error {
		var req setBaselinesRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}

		baselines := make([]*entities.Baseline, len(req.Baselines))
		for i, input := range req.Baselines {
			baselines[i] = &entities.Baseline{
				Metric:    input.Metric,
				Threshold: input.Threshold,
				Operator:  entities.BaselineOperator(input.Operator),
				Severity:  entities.AlertSeverity(input.Severity),
				Active:    input.Active == nil || *input.Active,
			}
		}
		if cErr := services.Baselines.SetBaselines(c.Params("modelID"), baselines); cErr != nil {
			return cErr
		}
		return c.Status(fiber.StatusCreated).JSON(baselines)
	})

	models.Get("/:modelID/baselines", func(c *fiber.Ctx) error {
		baselines, cErr := services.Baselines.Baselines(c.Params("modelID"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(baselines)
	})

	models.Post("/:modelID/baselines/evaluate", func(c *fiber.Ctx) error {
		var req evaluateBaselinesRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		checks, status, cErr := services.Baselines.Evaluate(c.Params("modelID"), req.Metrics)
		if cErr != nil {
			return cErr
		}
		return c.JSON(fiber.Map{
			"model_id": c.Params("modelID"),
			"status":   status,
			"checks":   checks,
		})
	})
}
