package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/modelguard/modelguard/pkg/abtest"
	"github.com/modelguard/modelguard/pkg/entities"
)

type createABTestRequest struct {
	Name              string                 `json:"name"                validate:"required"`
	ChampionModelID   string                 `json:"champion_model_id"   validate:"required"`
	ChallengerModelID string                 `json:"challenger_model_id" validate:"required"`
	Config            *entities.ABTestConfig `json:"config"`
}

type listABTestsQuery struct {
	Status string `query:"status"`
	Limit  int    `query:"limit" validate:"gte=0"`
}

type recordPredictionRequest struct {
	Arm       string  `json:"arm"       validate:"required,oneof=champion challenger"`
	Predicted int     `json:"predicted" validate:"oneof=0 1"`
	Actual    *int    `json:"actual"    validate:"omitempty,oneof=0 1"`
	LatencyMs float64 `json:"latency_ms" validate:"gte=0"`
}

func registerABTestRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	abtests := api.Group("/abtests")

	abtests.Post("/", func(c *fiber.Ctx) error {
		var req createABTestRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		test, cErr := services.ABTests.Create(req.Name, req.ChampionModelID, req.ChallengerModelID, req.Config)
		if cErr != nil {
			return cErr
		}
		return c.Status(fiber.StatusCreated).JSON(test)
	})

	abtests.Get("/", func(c *fiber.Ctx) error {
		var query listABTestsQuery
		if cErr := parser.ParseQuery(c, &query); cErr != nil {
			return cErr
		}
		tests, cErr := services.ABTests.List(entities.ABTestStatus(query.Status), query.Limit)
		if cErr != nil {
			return cErr
		}
		return c.JSON(tests)
	})

	// Registered ahead of /:id so "active" is not captured as an id.
	abtests.Get("/active", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.GetActive()
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/route", func(c *fiber.Ctx) error {
		testID, modelID, arm, cErr := services.ABTests.RouteRequest()
		if cErr != nil {
			return cErr
		}
		return c.JSON(fiber.Map{
			"test_id":  testID,
			"model_id": modelID,
			"arm":      arm,
		})
	})

	abtests.Get("/:id", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Get(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/:id/predictions", func(c *fiber.Ctx) error {
		var req recordPredictionRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		cErr := services.ABTests.RecordPrediction(
			c.Params("id"), abtest.Arm(req.Arm), req.Predicted, req.Actual, req.LatencyMs,
		)
		if cErr != nil {
			return cErr
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	abtests.Post("/:id/evaluate", func(c *fiber.Ctx) error {
		analysis, cErr := services.ABTests.Evaluate(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(analysis)
	})

	abtests.Post("/:id/start", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Start(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/:id/pause", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Pause(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/:id/resume", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Resume(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/:id/conclude", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Conclude(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})

	abtests.Post("/:id/abort", func(c *fiber.Ctx) error {
		test, cErr := services.ABTests.Abort(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(test)
	})
}
