// Package server exposes the health-management API over HTTP. Handlers
// return contract errors; the fiber error handler maps them onto status
// codes and a JSON body.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/abtest"
	"github.com/modelguard/modelguard/pkg/alert"
	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/fairness"
	"github.com/modelguard/modelguard/pkg/monitor"
	"github.com/modelguard/modelguard/pkg/retrain"
	"github.com/modelguard/modelguard/pkg/scheduler"
	"github.com/modelguard/modelguard/pkg/store"
)

// Services bundles everything the handlers reach into.
type Services struct {
	Drift     *monitor.DriftMonitor
	Fairness  *fairness.Analyzer
	Baselines *monitor.BaselineEvaluator
	Alerts    *alert.Service
	Retrain   *retrain.Pipeline
	ABTests   *abtest.Service
	Scheduler *scheduler.Scheduler
	Reports   store.ReportStore
}

// Launch serves the API until ctx is cancelled.
func Launch(ctx context.Context, cfg *config.Config, services *Services) error {
	app := fiber.New(fiber.Config{
		BodyLimit:             16 * 1024 * 1024,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "modelguard/" + cfg.Version,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(compress.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path}\n",
		Output: logrus.StandardLogger().Writer(),
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})

	parser := NewHTTPRequestParser()
	api := app.Group("/api/v1")
	registerJobRoutes(api, parser, services)
	registerMonitoringRoutes(api, parser, services)
	registerBaselineRoutes(api, parser, services)
	registerAlertRoutes(api, parser, services)
	registerRetrainRoutes(api, parser, services)
	registerABTestRoutes(api, parser, services)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout.Duration); err != nil {
			logrus.Errorf("Failed to gracefully shutdown server: %v", err)
		}
	}()

	logrus.WithField("address", cfg.Address).Info("server listening")
	if err := app.Listen(cfg.Address); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	var e *contract.Error
	if !errors.As(err, &e) {
		code := contract.ErrorCodeInternalError

		var f *fiber.Error
		if errors.As(err, &f) {
			switch f.Code {
			case fiber.StatusBadRequest:
				code = contract.ErrorCodeBadRequest
			case fiber.StatusNotFound:
				code = contract.ErrorCodeEndpointNotFound
			}
		}

		e = contract.NewError(code, "%s", err.Error())
	}

	var fn func(format string, args ...any)
	switch e.StatusCode() {
	case fiber.StatusBadRequest, fiber.StatusConflict:
		fn = logrus.Infof
	case fiber.StatusNotFound:
		fn = logrus.Debugf
	default:
		fn = logrus.Errorf
	}
	fn("Error encountered in %s %s: %s", c.Method(), c.Path(), err)

	return c.Status(e.StatusCode()).JSON(e)
}
