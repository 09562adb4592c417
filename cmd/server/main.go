package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autorec/internal/autorecord"
	"autorec/internal/gamedata"
	"autorec/internal/obsws"
	"autorec/internal/platform/config"
	"autorec/internal/platform/logger"
	"autorec/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	obsAddress := config.GetEnv("OBS_ADDRESS", "ws://127.0.0.1:4455")
	obsPassword := config.GetEnv("OBS_PASSWORD", "")
	rulesPath := config.GetEnv("RULES_FILE", "rules.yaml")
	territoriesPath := config.GetEnv("TERRITORIES_FILE", "")
	autoConnect := config.GetEnvBool("AUTO_CONNECT", true)

	log := logger.New(logLevel, logFormat)

	rules, err := config.NewRulesStore(rulesPath, log)
	if err != nil {
		log.Error("load rules", "error", err)
		os.Exit(1)
	}

	territories := gamedata.New(nil)
	if territoriesPath != "" {
		t, err := gamedata.Load(territoriesPath)
		if err != nil {
			log.Warn("load territories, zone names unavailable", "error", err)
		} else {
			territories = t
		}
	}

	met := metrics.New()
	backend := obsws.New(log.With("component", "obsws"))
	mirror := autorecord.NewOutputMirror()
	conn := autorecord.NewManager(backend, mirror, log, met)
	player := autorecord.NewPlayerState()
	cmds := autorecord.NewFacade(conn, mirror, backend, log, met, nil)

	orch := autorecord.NewOrchestrator(autorecord.OrchestratorDeps{
		Conn:     conn,
		Commands: cmds,
		Rules:    rules.Rules,
		Zone: func() string {
			name, _ := territories.Lookup(player.TerritoryID())
			return name
		},
		InCutscene: func() bool {
			id := rules.Rules().CutsceneStatusID
			return id != 0 && player.OnlineStatusID() == id
		},
		Log:      log,
		Metrics:  met,
		Address:  obsAddress,
		Password: obsPassword,
	})

	bus := autorecord.NewBus()
	h := autorecord.NewHandler(bus, conn, cmds, mirror, player, orch, log, met, obsAddress, obsPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(64)
	go orch.Run(ctx, sub.C())
	go conn.Run(ctx)
	go func() {
		if err := rules.Watch(ctx); err != nil {
			log.Warn("rules watch stopped", "error", err)
		}
	}()

	if autoConnect {
		conn.Connect(obsAddress, obsPassword)
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetConnectionStatus(int(conn.Status())) }).ServeHTTP(w, req)
	})
	r.Get("/status", h.Status)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)
	r.Route("/events", func(r chi.Router) {
		r.Post("/combat/enter", h.CombatEnter)
		r.Post("/combat/exit", h.CombatExit)
		r.Post("/countdown", h.Countdown)
		r.Post("/duty/start", h.DutyStart)
		r.Post("/duty/complete", h.DutyComplete)
		r.Post("/duty/wipe", h.DutyWipe)
		r.Post("/player", h.PlayerUpdate)
	})
	r.Route("/recording", func(r chi.Router) {
		r.Post("/start", h.StartRecording)
		r.Post("/stop", h.StopRecording)
		r.Post("/toggle", h.ToggleRecording)
	})
	r.Route("/replay", func(r chi.Router) {
		r.Post("/start", h.StartReplay)
		r.Post("/stop", h.StopReplay)
		r.Post("/save", h.SaveReplay)
	})
	r.Post("/streaming/toggle", h.ToggleStreaming)
	r.Post("/filters", h.SetFilter)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"obs_address", obsAddress,
		"rules_file", rulesPath,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	cancel()
	conn.Disconnect()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
