package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/modelguard/modelguard/pkg/alert"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store"
)

type createAlertRequest struct {
	ModelID  string         `json:"model_id"`
	Type     string         `json:"alert_type" validate:"required,alerttype"`
	Severity string         `json:"severity"   validate:"required,alertseverity"`
	Title    string         `json:"title"      validate:"required"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details"`
}

type listAlertsQuery struct {
	Status   string `query:"status"`
	Severity string `query:"severity" validate:"omitempty,alertseverity"`
	ModelID  string `query:"model_id"`
	Limit    int    `query:"limit"    validate:"gte=0"`
}

type acknowledgeRequest struct {
	By string `json:"acknowledged_by" validate:"required"`
}

type resolveRequest struct {
	Note string `json:"resolution_note"`
}

func registerAlertRoutes(api fiber.Router, parser *HTTPRequestParser, services *Services) {
	alerts := api.Group("/alerts")

	alerts.Post("/", func(c *fiber.Ctx) error {
		var req createAlertRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		created, cErr := services.Alerts.Create(alert.CreateParams{
			ModelID:  req.ModelID,
			Type:     entities.AlertType(req.Type),
			Severity: entities.AlertSeverity(req.Severity),
			Title:    req.Title,
			Message:  req.Message,
			Details:  req.Details,
		})
		if cErr != nil {
			return cErr
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	alerts.Get("/", func(c *fiber.Ctx) error {
		var query listAlertsQuery
		if cErr := parser.ParseQuery(c, &query); cErr != nil {
			return cErr
		}
		list, cErr := services.Alerts.List(store.AlertFilter{
			Status:   entities.AlertStatus(query.Status),
			Severity: entities.AlertSeverity(query.Severity),
			ModelID:  query.ModelID,
			Limit:    query.Limit,
		})
		if cErr != nil {
			return cErr
		}
		return c.JSON(list)
	})

	alerts.Get("/summary", func(c *fiber.Ctx) error {
		summary, cErr := services.Alerts.Summary()
		if cErr != nil {
			return cErr
		}
		return c.JSON(summary)
	})

	alerts.Get("/:id", func(c *fiber.Ctx) error {
		found, cErr := services.Alerts.Get(c.Params("id"))
		if cErr != nil {
			return cErr
		}
		return c.JSON(found)
	})

	alerts.Post("/:id/acknowledge", func(c *fiber.Ctx) error {
		var req acknowledgeRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		acked, cErr := services.Alerts.Acknowledge(c.Params("id"), req.By)
		if cErr != nil {
			return cErr
		}
		if acked == nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.JSON(acked)
	})

	alerts.Post("/:id/resolve", func(c *fiber.Ctx) error {
		var req resolveRequest
		if cErr := parser.ParseBody(c, &req); cErr != nil {
			return cErr
		}
		resolved, cErr := services.Alerts.Resolve(c.Params("id"), req.Note)
		if cErr != nil {
			return cErr
		}
		if resolved == nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.JSON(resolved)
	})
}
