package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/entities"
)

type triggerRetrainRequest struct {
	ModelID string                  `json:"model_id" validate:"required"`
	Reason  string                  `json:"reason"   validate:"required,retrainreason"`
	Config  *entities.RetrainConfig `json:"config"`
}

type listRetrainQuery struct {
	ModelID string `query:"model_id"`
	Status  string `query:"status"`
	Limit   int    `query:"limit" validate:"gte=0"`
}

func registerRetrainRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	retraining := api.Group("/retrain")

	// Queues the job and runs the pipeline in the background; the caller
	// polls GET /retrain/:id for progress.
	retraining.Post("/", func(c *fiber.Ctx) error {
		var req triggerRetrainRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		job, cErr := services.Retrain.Trigger(req.ModelID, entities.RetrainReason(req.Reason), req.Config)
		if cErr != nil {
			return cErr
		}
		go func() {
			if err := services.Retrain.Run(context.Background(), job.ID); err != nil {
				logrus.WithField("job_id", job.ID).Errorf("retraining run failed: %v", err)
			}
		}()
		return c.Status(fiber.StatusAccepted).JSON(job)
	})

	retraining.Get("/", func(c *fiber.Ctx) error {
		var query listRetrainQuery
		if cErr := parser.ParseQuery(c, &query); cErr != nil {
			return cErr
		}
		jobs, cErr := services.Retrain.List(query.ModelID, entities.RetrainStatus(query.Status), query.Limit)
		if cErr != nil {
			return cErr
		}
		return c.JSON(jobs)
	})

	retraining.Get("/:id", func(c *fiber.Ctx) error {
		job, cErr := services.Retrain.Get(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(job)
	})

	retraining.Post("/:id/promote", func(c *fiber.Ctx) error {
		job, cErr := services.Retrain.Promote(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(job)
	})
}
