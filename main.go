// Command modelguard runs the model health-management service: the
// HTTP API, the monitoring scheduler and the retraining pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/abtest"
	"github.com/modelguard/modelguard/pkg/alert"
	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/fairness"
	"github.com/modelguard/modelguard/pkg/monitor"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/retrain"
	"github.com/modelguard/modelguard/pkg/scheduler"
	"github.com/modelguard/modelguard/pkg/server"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/store/memory"
	"github.com/modelguard/modelguard/pkg/store/sql"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON configuration file")
	bootstrapModel := flag.String("bootstrap-model", "fraud-detector",
		"model to register and schedule on startup; empty disables bootstrapping")
	flag.Parse()

	if err := run(*configPath, *bootstrapModel); err != nil {
		logrus.Fatal(err)
	}
}

func run(configPath, bootstrapModel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	dataStore, err := newStore(cfg.StoreURL)
	if err != nil {
		return err
	}

	reg := registry.NewInMemory()
	if bootstrapModel != "" {
		if err := bootstrap(reg, bootstrapModel); err != nil {
			return err
		}
	}

	alerts := alert.NewService(dataStore, nil, cfg.AlertDedupWindow.Duration)
	drift := monitor.NewDriftMonitor(cfg.Drift)
	baselines := monitor.NewBaselineEvaluator(dataStore)
	analyzer := fairness.NewAnalyzer(cfg.Fairness)
	pipeline := retrain.NewPipeline(
		dataStore,
		registry.NewSimulatedDataSource(1),
		registry.NewSimulatedTrainer(2),
		reg,
	)
	abtests, err := abtest.NewService(dataStore, reg)
	if err != nil {
		return fmt.Errorf("failed to initialize ab testing: %w", err)
	}

	sched := scheduler.New(dataStore, cfg.SchedulerPoll.Duration)
	handlers := &scheduler.Handlers{
		Provider:  registry.NewSimulatedProvider(3, reg),
		Drift:     drift,
		Fairness:  analyzer,
		Baselines: baselines,
		Alerts:    alerts,
		Pipeline:  pipeline,
		ABTests:   abtests,
		Reports:   dataStore,
		Retrains:  dataStore,
	}
	handlers.Register(sched)

	if bootstrapModel != "" {
		if cErr := sched.EnsureDefaults(bootstrapModel); cErr != nil {
			return fmt.Errorf("failed to schedule default checks: %w", cErr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Start(ctx)

	return server.Launch(ctx, cfg, &server.Services{
		Drift:     drift,
		Fairness:  analyzer,
		Baselines: baselines,
		Alerts:    alerts,
		Retrain:   pipeline,
		ABTests:   abtests,
		Scheduler: sched,
		Reports:   dataStore,
	})
}

func newStore(storeURL string) (store.Store, error) {
	if strings.HasPrefix(storeURL, "memory://") {
		logrus.Info("using in-memory store, state is lost on shutdown")
		return memory.NewStore(), nil
	}
	return sql.NewStore(logrus.StandardLogger(), storeURL)
}

// bootstrap registers a production model so the monitoring loop has
// something to watch on a fresh install.
func bootstrap(reg *registry.InMemory, name string) error {
	if _, err := reg.ProductionModel(name); err == nil {
		return nil
	}
	return reg.Register(&registry.Model{
		ID:        name,
		Name:      name,
		Version:   1,
		Stage:     registry.StageProduction,
		Algorithm: "gradient_boosting",
		Metrics: map[string]float64{
			"precision":           0.88,
			"recall":              0.84,
			"f1":                  0.86,
			"auc":                 0.93,
			"false_positive_rate": 0.06,
		},
	})
}
