package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"mq-designer/admin"
	"mq-designer/api"
	"mq-designer/config"
	"mq-designer/designer"
	"mq-designer/generator"
	"mq-designer/i18n"
	"mq-designer/logger"
	"mq-designer/metrics"
	"mq-designer/rabbitmq"
	"mq-designer/scripting"
	"mq-designer/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

var version = "1.2.0"

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogDir, version, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	log.Info("logger initialized successfully")
	log.Info("config loaded", "port", cfg.Port, "log_dir", cfg.LogDir, "db_path", cfg.DBPath, "locales_dir", cfg.LocalesDir)

	dataStore, err := storage.NewStore(cfg.DBPath, log)
	if err != nil {
		log.Error("failed to create data store", "error", err)
		os.Exit(1)
	}
	defer dataStore.Close()
	log.Info("data store initialized")

	i18nService, err := i18n.NewService(cfg.LocalesDir, log)
	if err != nil {
		log.Error("failed to initialize i18n service", "error", err)
		os.Exit(1)
	}

	scriptingHTTPClient := scripting.NewHTTPClient(log)
	scriptingService := scripting.NewService(log, scriptingHTTPClient)

	designService := designer.NewService(cfg, dataStore, designer.NewLogNotifier(log), log)
	defer designService.Close()

	log.Info("loading existing designs...")
	designs, err := dataStore.GetAllDesigns()
	if err != nil {
		log.Error("failed to get designs for boot load", "error", err)
	} else {
		for _, design := range designs {
			if err := designService.LoadDesign(design.ID); err != nil {
				log.Error("failed to load design on boot", "design_id", design.ID, "design_name", design.Name, "error", err)
				continue
			}
			if cfg.Simulation.Autostart {
				if err := designService.StartSimulation(design.ID); err != nil {
					log.Error("failed to autostart simulation", "design_id", design.ID, "error", err)
				}
			}
		}
	}
	log.Info("design load complete", "count", len(designs))

	// The live broker is optional. Without a DSN the designer runs fully
	// simulated and the provisioning endpoints answer 503.
	var provisioner *rabbitmq.Provisioner
	if cfg.RabbitMQ.DSN != "" {
		provisioner, err = rabbitmq.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Error("failed to connect to rabbitmq, provisioning disabled", "error", err)
			provisioner = nil
		} else {
			defer provisioner.Close()
		}
	} else {
		log.Info("no rabbitmq dsn configured, provisioning disabled")
	}

	generatorService := generator.NewService(dataStore, scriptingService, designService, log)
	if err := generatorService.ScheduleAll(); err != nil {
		log.Error("failed to schedule generators", "error", err)
	}
	generatorService.Start()

	c := cron.New()
	if cfg.Snapshots.Schedule != "" {
		_, err := c.AddFunc(cfg.Snapshots.Schedule, func() {
			designs, err := dataStore.GetAllDesigns()
			if err != nil {
				log.Error("failed to get designs for scheduled snapshot", "error", err)
				return
			}
			for _, design := range designs {
				if _, err := designService.SaveSnapshot(design.ID); err != nil {
					log.Error("failed to save scheduled snapshot", "design_id", design.ID, "error", err)
				}
			}
		})
		if err != nil {
			log.Error("failed to schedule snapshots", "schedule", cfg.Snapshots.Schedule, "error", err)
		} else {
			log.Info("snapshots scheduled", "schedule", cfg.Snapshots.Schedule)
		}
	}
	c.Start()

	mux := http.NewServeMux()
	adminHandler := admin.NewHandler(dataStore, designService, generatorService, provisioner, log, version, i18nService)
	apiHandler := api.NewHandler(designService, log)

	metrics.Register()

	mux.Handle("/admin", adminHandler)
	mux.Handle("/admin/", adminHandler)
	mux.Handle("/api/designs/", apiHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "MQ Designer is running. Visit /admin to configure.")
	})

	log.Info("starting server", "port", cfg.Port)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
