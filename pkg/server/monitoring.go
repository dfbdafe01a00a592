package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/fairness"
)

type driftCheckRequest struct {
	Reference map[string][]float64 `json:"reference" validate:"required"`
	Current   map[string][]float64 `json:"current"   validate:"required"`
}

type categoricalDriftRequest struct {
	Reference map[string]int `json:"reference" validate:"required"`
	Current   map[string]int `json:"current"   validate:"required"`
}

type biasCheckRequest struct {
	Predicted  []int               `json:"predicted"  validate:"required"`
	Truth      []int               `json:"truth"`
	Attributes map[string][]string `json:"attributes" validate:"required"`
}

type mitigationRequest struct {
	Strategy  string    `json:"strategy" validate:"required,oneof=REWEIGH GROUP_THRESHOLD CONSTRAINED"`
	Scores    []float64 `json:"scores"`
	Predicted []int     `json:"predicted" validate:"required"`
	Truth     []int     `json:"truth"`
	Groups    []string  `json:"groups" validate:"required"`
}

type updateThresholdsRequest struct {
	Bins        int     `json:"bins"         validate:"required"`
	PSIWarning  float64 `json:"psi_warning"  validate:"required"`
	PSICritical float64 `json:"psi_critical" validate:"required"`
	KSAlpha     float64 `json:"ks_alpha"     validate:"required"`
}

func registerMonitoringRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	monitoring := api.Group("/monitoring")

	monitoring.Get("/thresholds", func(c *fiber.Ctx) error {
		return c.JSON(services.Drift.Thresholds())
	})

	monitoring.Put("/thresholds", func(c *fiber.Ctx) error {
		var req updateThresholdsRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		thresholds := config.DriftThresholds{
			Bins:        req.Bins,
			PSIWarning:  req.PSIWarning,
			PSICritical: req.PSICritical,
			KSAlpha:     req.KSAlpha,
		}
		if cErr := services.Drift.SetThresholds(thresholds); cErr != nil {
			return cErr
		}
		return c.JSON(thresholds)
	})

	// Scores the supplied windows, persists the report and returns it.
	monitoring.Post("/:modelID/drift", func(c *fiber.Ctx) error {
		var req driftCheckRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		modelID := c.Params("modelID")

		previous, _ := services.Reports.GetDriftReport(modelID)
		report, findings := services.Drift.Check(modelID, req.Reference, req.Current, previous)
		if err := services.Reports.SaveDriftReport(report); err != nil {
			return contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to save drift report")
		}
		for _, finding := range findings {
			if _, cErr := services.Alerts.CreateDriftAlert(modelID, finding); cErr != nil {
				return cErr
			}
		}
		return c.JSON(report)
	})

	monitoring.Get("/:modelID/drift", func(c *fiber.Ctx) error {
		report, err := services.Reports.GetDriftReport(c.Params("modelID"))
		if err != nil {
			return contract.NewNotFound("no drift report for model %q", c.Params("modelID"))
		}
		return c.JSON(report)
	})

	monitoring.Post("/:modelID/drift/categorical", func(c *fiber.Ctx) error {
		var req categoricalDriftRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		return c.JSON(services.Drift.EvaluateCategorical(req.Reference, req.Current))
	})

	monitoring.Post("/:modelID/bias", func(c *fiber.Ctx) error {
		var req biasCheckRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		modelID := c.Params("modelID")

		results, overall, cErr := services.Fairness.AnalyzeAll(req.Predicted, req.Truth, req.Attributes)
		if cErr != nil {
			return cErr
		}
		report := fairness.ToReport(modelID, results, overall)
		if err := services.Reports.SaveBiasReport(report); err != nil {
			return contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to save bias report")
		}
		return c.JSON(report)
	})

	monitoring.Get("/:modelID/bias", func(c *fiber.Ctx) error {
		report, err := services.Reports.GetBiasReport(c.Params("modelID"))
		if err != nil {
			return contract.NewNotFound("no bias report for model %q", c.Params("modelID"))
		}
		return c.JSON(report)
	})

	monitoring.Post("/:modelID/bias/mitigate", func(c *fiber.Ctx) error {
		var req mitigationRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		result, cErr := services.Fairness.Mitigate(
			fairness.Strategy(req.Strategy), req.Scores, req.Predicted, req.Truth, req.Groups,
		)
		if cErr != nil {
			return cErr
		}
		return c.JSON(result)
	})
}
