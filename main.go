/*
Package main
File: main.go
Description: Companion process entry point. Loads settings, builds the damage
session over a scripted in-memory world, runs the 60 Hz tick loop, and serves
the HUD feed and the status/command API.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/everforgeworks/deadly-accel/internal/api"
	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/game"
	"github.com/everforgeworks/deadly-accel/internal/host/memhost"
	"github.com/everforgeworks/deadly-accel/internal/logging"
)

const (
	tickRate     = time.Second / 60
	autosaveRate = 5 * time.Minute
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func main() {
	// 1. Environment. A missing .env is fine; anything else is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Env Fail: %v", err)
	}

	configDir := flag.String("config-dir", envOr("DEADLYACCEL_CONFIG_DIR", "."), "directory holding the local config file")
	worldDir := flag.String("world-dir", envOr("DEADLYACCEL_WORLD_DIR", ""), "directory holding the per-world config file")
	scenarioPath := flag.String("scenario", envOr("DEADLYACCEL_SCENARIO", ""), "scenario YAML to replay")
	addr := flag.String("addr", envOr("DEADLYACCEL_ADDR", ":8081"), "HTTP listen address")
	logFile := flag.String("log-file", envOr("DEADLYACCEL_LOG_FILE", ""), "optional JSON debug log")
	debug := flag.Bool("debug", envBool("DEADLYACCEL_DEBUG", false), "log debug records to the console")
	flag.Parse()

	// 2. HUD hub first, so the UI log channel has somewhere to go.
	hub := api.NewHub(512, nil)

	consoleLevel := slog.LevelInfo
	if *debug {
		consoleLevel = slog.LevelDebug
	}
	logs, closeLog, err := logging.New(logging.Config{
		ConsoleLevel: consoleLevel,
		FilePath:     *logFile,
		UILevel:      slog.LevelInfo,
		Notify:       hub.Notify,
		ModName:      "deadlyaccel",
	})
	if err != nil {
		log.Fatalf("Log Fail: %v", err)
	}
	defer closeLog()

	// 3. Settings.
	store := config.NewStore(*configDir, *worldDir, logs)
	settings, err := store.LoadOrReset(config.Default())
	if err != nil {
		logs.Game.Error("CONFIG: failed to persist settings", "err", err)
	}

	// 4. World.
	scenario := &memhost.Scenario{World: memhost.New()}
	if *scenarioPath != "" {
		scenario, err = memhost.LoadScenario(*scenarioPath)
		if err != nil {
			log.Fatalf("Scenario Fail: %v", err)
		}
	}

	session := game.NewSession(scenario.World, settings,
		game.WithSignalSink(hub),
		game.WithLogger(logs))

	// Scenario juice goes through the same hook other mods call.
	hooks := api.NewHooks(session, logs)
	for _, js := range scenario.Juice {
		payload, err := api.EncodeJuiceDefinition(game.JuiceDefinition{
			SubtypeID:            js.SubtypeID,
			ConsumptionRate:      js.ConsumptionRate,
			ToxicityPerMitigated: js.ToxicityPerMitigated,
			ToxicityDecay:        js.ToxicityDecay,
			Ranking:              js.Ranking,
		})
		if err != nil {
			logs.Game.Error("MAIN: failed to encode scenario juice", "subtype", js.SubtypeID, "err", err)
			continue
		}
		hooks[api.HookRegisterJuice](payload)
	}
	logs.Game.Info("API: hook table ready", "message_id", api.ModAPIMessageID, "hooks", len(hooks))
	for _, p := range scenario.World.Players(nil) {
		session.PlayerConnected(p.IdentityID())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	// 5. THE TICK LOOP
	go func() {
		ticker := time.NewTicker(tickRate)
		defer ticker.Stop()
		autosave := time.NewTicker(autosaveRate)
		defer autosave.Stop()
		finished := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// A finished script holds its last state; the session keeps ticking.
				if !scenario.Done() {
					scenario.Advance()
				} else if !finished {
					finished = true
					logs.Game.Info("SCENARIO: finished", "tick", scenario.Tick())
				}
				session.Tick()
			case <-autosave.C:
				session.SaveData()
			}
		}
	}()

	// 6. Hot-reload: SIGHUP re-reads the config files.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				logs.Game.Info("SIGNAL: reloading settings")
				reloaded := store.TryLoad(session.Settings())
				if err := reloaded.Validate(); err != nil {
					logs.Game.Error("SIGNAL: reloaded settings rejected", "err", err)
					continue
				}
				session.SetSettings(reloaded)
			}
		}
	}()

	// 7. Router
	mux := http.NewServeMux()
	srv := &api.Server{Session: session, Store: store, Hub: hub, Log: logs}
	srv.Routes(mux)

	httpServer := &http.Server{Addr: *addr, Handler: corsMiddleware(mux)}
	go func() {
		logs.Game.Info("DEADLY ACCELERATION companion live", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Game.Error("HTTP: server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	// 8. Shutdown: persist players and settings.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	final := session.Settings()
	session.Close()
	if err := store.Save(final, false); err != nil {
		logs.Game.Error("CONFIG: failed to save settings on shutdown", "err", err)
	}
	logs.Game.Info("MAIN: shutdown complete")
}

// corsMiddleware lets browser HUD overlays call the API from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
