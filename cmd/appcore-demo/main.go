// Command appcore-demo boots a small application on the orchestration core:
// a settings watcher, an HTTP status API, and a cron scheduler, wired purely
// through module registration. It is the runnable counterpart of the basic
// bootstrap shown in the package documentation.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/audiostracker/appcore"
	"github.com/audiostracker/appcore/modules/configwatcher"
	"github.com/audiostracker/appcore/modules/httpapi"
	"github.com/audiostracker/appcore/modules/scheduler"
)

func main() {
	configPath := flag.String("config", "", "core config file (yaml or toml)")
	settingsPath := flag.String("settings", "settings.yaml", "settings file to watch")
	addr := flag.String("addr", "127.0.0.1:8770", "http api listen address")
	flag.Parse()

	logger := appcore.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := appcore.DefaultCoreConfig()
	if *configPath != "" {
		if err := appcore.LoadConfigFile(*configPath, cfg); err != nil {
			logger.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if err := appcore.FeedFromEnv("APPCORE", cfg); err != nil {
		logger.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	core := appcore.New(logger, appcore.WithConfig(cfg))

	// Log lifecycle transitions as they happen.
	_ = core.RegisterObserver(appcore.NewFunctionalObserver("lifecycle-log",
		func(_ context.Context, event cloudevents.Event) error {
			logger.Debug("Lifecycle event", "type", event.Type(), "data", string(event.Data()))
			return nil
		}))

	register := func(name string, factory appcore.ModuleFactory, deps ...string) {
		if err := core.Register(name, factory, deps...); err != nil {
			logger.Error("Registration failed", "module", name, "error", err)
			os.Exit(1)
		}
	}

	register(configwatcher.ModuleName, configwatcher.New(configwatcher.Config{
		Path: *settingsPath,
	}))
	register(httpapi.ModuleName, httpapi.New(httpapi.Config{
		Addr: *addr,
	}), configwatcher.ModuleName)
	register(scheduler.ModuleName, scheduler.New(scheduler.Config{
		Jobs: []scheduler.JobConfig{
			{Spec: "0 * * * * *", Event: "refresh:tick"},
		},
	}))

	if err := core.Run(); err != nil {
		logger.Error("Bootstrap failed", "error", err)
		os.Exit(1)
	}
}
