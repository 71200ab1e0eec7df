package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"NetSentinel/internal/config"
	"NetSentinel/internal/dispatch"
	"NetSentinel/internal/engine"
	"NetSentinel/internal/history"
	"NetSentinel/internal/mlclient"
	"NetSentinel/internal/model"
	"NetSentinel/internal/notification"
	"NetSentinel/internal/probe"
	"NetSentinel/internal/rules"
	"NetSentinel/internal/throttle"
	"NetSentinel/internal/tracker"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting sentinel-engine...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	windowRetention := mustDuration(cfg.Engine.WindowRetention, "window_retention")
	idleTimeout := mustDuration(cfg.Engine.IdleEvictionTimeout, "idle_eviction_timeout")
	cooldown := mustDuration(cfg.Engine.AlertCooldown, "alert_cooldown")
	flowDeadline := mustDuration(cfg.Engine.FlowDeadline, "flow_deadline")
	mlTimeout := mustDuration(cfg.ML.Timeout, "ml timeout")

	ruleStore, err := rules.NewStore(cfg.Rules.Path)
	if err != nil {
		log.Fatalf("Failed to load rule catalog: %v", err)
	}
	log.Printf("Rule catalog loaded with %d rules.", ruleStore.Current().Len())

	var classifier model.Classifier
	if cfg.ML.Enabled {
		classifier = mlclient.New(cfg.ML.Endpoint, mlTimeout)
		log.Printf("ML classifier enabled at %s", cfg.ML.Endpoint)
	} else {
		log.Println("ML classifier disabled, running rule-only detection.")
	}

	sinks := []model.VerdictSink{dispatch.NewLogSink()}

	var natsSink *dispatch.NATSSink
	if cfg.NATS.VerdictSubject != "" {
		natsSink, err = dispatch.NewNATSSink(cfg.NATS.URL, cfg.NATS.VerdictSubject)
		if err != nil {
			log.Fatalf("Failed to create NATS verdict sink: %v", err)
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
	}

	if cfg.Notification.Enabled {
		notifier := notification.NewEmailNotifier(cfg.Notification.SMTP)
		var analyzer *notification.IncidentAnalyzer
		if cfg.Notification.AI.Enabled {
			analyzer, err = notification.NewIncidentAnalyzer(&cfg.Notification.AI)
			if err != nil {
				log.Printf("Warning: AI incident analysis unavailable: %v", err)
			}
		}
		sinks = append(sinks, notification.NewAlertSink(notifier, analyzer,
			model.Severity(cfg.Notification.MinSeverity)))
		log.Println("Alert notifications enabled.")
	}

	var historyWriter model.VerdictWriter
	if cfg.History.Enabled {
		flushInterval := mustDuration(cfg.History.FlushInterval, "history flush_interval")
		w, err := history.NewClickHouseWriter(cfg.History.ClickHouse, flushInterval, cfg.History.BatchSize)
		if err != nil {
			log.Fatalf("Failed to create verdict history writer: %v", err)
		}
		defer w.Close()
		historyWriter = w
	}

	eng := engine.New(
		engine.Config{
			NumWorkers:   cfg.Engine.NumWorkers,
			ChannelSize:  cfg.Engine.SizeOfObservationChannel,
			MLTimeout:    mlTimeout,
			FlowDeadline: flowDeadline,
		},
		tracker.New(windowRetention, idleTimeout),
		rules.NewEngine(ruleStore),
		classifier,
		engine.NewOrchestrator(cfg.Engine.PriorityFloor, cfg.Engine.MinConfidence),
		throttle.New(cooldown),
		dispatch.New(sinks...),
		historyWriter,
	)
	eng.Start()

	sub, err := probe.NewSubscriber(cfg.NATS.URL, cfg.NATS.ObservationSubject)
	if err != nil {
		log.Fatalf("Failed to create observation subscriber: %v", err)
	}

	input := eng.Input()
	if err := sub.Start(func(obs *model.FlowObservation) {
		input <- obs
	}); err != nil {
		log.Fatalf("Failed to subscribe to observations: %v", err)
	}

	var adminServer *http.Server
	if cfg.API.ListenAddr != "" {
		adminServer = startAdminServer(cfg.API.ListenAddr, eng, ruleStore)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")
	// Close the subscriber first: it waits for in-flight deliveries, so the
	// engine's input channel is quiescent before Stop closes it.
	sub.Close()
	if adminServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminServer.Shutdown(ctx); err != nil {
			log.Printf("Admin server forced to shutdown: %v", err)
		}
	}
	eng.Stop()
	log.Println("Shutdown complete.")
}

func startAdminServer(addr string, eng *engine.Engine, store *rules.Store) *http.Server {
	r := mux.NewRouter()
	h := &adminHandler{engine: eng, store: store}
	r.HandleFunc("/healthz", h.healthz).Methods("GET")
	r.HandleFunc("/api/v1/stats", h.stats).Methods("GET")
	r.HandleFunc("/api/v1/rules", h.listRules).Methods("GET")
	r.HandleFunc("/api/v1/rules/reload", h.reloadRules).Methods("POST")

	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Printf("Admin API listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", addr, err)
		}
	}()
	return server
}

func mustDuration(value, name string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid %s duration %q: %v", name, value, err)
	}
	return d
}
