package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/modelguard/modelguard/pkg/entities"
)

type createJobRequest struct {
	JobType  string         `json:"job_type"  validate:"required,jobkind"`
	ModelID  string         `json:"model_id"`
	Schedule string         `json:"schedule"`
	Config   map[string]any `json:"config"`
}

type listJobsQuery struct {
	JobType string `query:"job_type"`
	ModelID string `query:"model_id"`
}

type listRunsQuery struct {
	Limit int `query:"limit" validate:"gte=0"`
}

func registerJobRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	jobs := api.Group("/jobs")

	jobs.Post("/", func(c *fiber.Ctx) error {
		var req createJobRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		job, cErr := services.Scheduler.CreateJob(entities.JobKind(req.JobType), req.ModelID, req.Schedule, req.Config)
		if cErr != nil {
			return cErr
		}
		return c.Status(fiber.StatusCreated).JSON(job)
	})

	jobs.Get("/", func(c *fiber.Ctx) error {
		var query listJobsQuery
		if cErr := parser.ParseQuery(c, &query); cErr != nil {
			return cErr
		}
		list, cErr := services.Scheduler.ListJobs(entities.JobKind(query.JobType), query.ModelID)
		if cErr != nil {
			return cErr
		}
		return c.JSON(list)
	})

	jobs.Get("/:id", func(c *fiber.Ctx) error {
		job, cErr := services.Scheduler.GetJob(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(job)
	})

	jobs.Delete("/:id", func(c *fiber.Ctx) error {
		if cErr := services.Scheduler.DeleteJob(c.Params("id")); cErr != nil {
			return cErr
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	jobs.Post("/:id/run", func(c *fiber.Ctx) error {
		run, cErr := services.Scheduler.RunJob(c.UserContext(), c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(run)
	})

	jobs.Post("/:id/enable", func(c *fiber.Ctx) error {
		job, cErr := services.Scheduler.Enable(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(job)
	})

	jobs.Post("/:id/disable", func(c *fiber.Ctx) error {
		job, cErr := services.Scheduler.Disable(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(job)
	})

	jobs.Get("/:id/runs", func(c *fiber.Ctx) error {
		var query listRunsQuery
		if cErr := parser.ParseQuery(c, &query); cErr != nil {
			return cErr
		}
		runs, cErr := services.Scheduler.ListRuns(c.Params("id"), query.Limit)
		if cErr != nil {
			return cErr
		}
		return c.JSON(runs)
	})
}
