// jobpilot agent-service
//
// Autonomous job application agent:
//   - discover cycle: fan-out search across job boards, filter, score, persist
//   - apply cycle:    cover letter generation + submission under a daily cap
//   - daily rollup:   per-day statistics flushed at a configured time
//
// Publishes operator notifications to Redis and exposes a small REST API
// for status, job listing, stats and credential storage.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobpilot/agent-service/internal/agent"
	"jobpilot/agent-service/internal/api"
	"jobpilot/agent-service/internal/apply"
	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/db"
	"jobpilot/agent-service/internal/letter"
	"jobpilot/agent-service/internal/match"
	"jobpilot/agent-service/internal/notify"
	"jobpilot/agent-service/internal/source"
	"jobpilot/agent-service/internal/store"
	"jobpilot/agent-service/internal/vault"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[agent-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[agent-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[agent-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[agent-service] PostgreSQL connected ✓")

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("[agent-service] Schema: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[agent-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[agent-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[agent-service] Redis connected ✓")

	// ── Collaborators ────────────────────────────────────────────────────────
	st := store.New(pool)

	vlt, err := vault.New(pool, cfg.VaultKey)
	if err != nil {
		log.Fatalf("[agent-service] Vault: %v", err)
	}
	if !vlt.Enabled() {
		log.Println("[agent-service] Vault key not set — credential storage disabled")
	}

	sources := source.NewAggregator(
		source.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry),
	)

	engine := match.NewEngine(cfg.Profile)
	generator := letter.NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Profile, cfg.DataDir)
	submitter := apply.NewOutbox(cfg.OutboxDir)
	notifier := notify.NewRedisNotifier(rdb)

	a := agent.New(cfg, st, sources, engine, generator, submitter, notifier)

	// ── Agent loop ───────────────────────────────────────────────────────────
	agentDone := make(chan struct{})
	go func() {
		defer close(agentDone)
		a.Run(ctx)
	}()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := api.NewHandler(a, st, vlt)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[agent-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[agent-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[agent-service] Shutting down…")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[agent-service] Shutdown error: %v", err)
	}

	select {
	case <-agentDone:
	case <-shutdownCtx.Done():
		log.Println("[agent-service] Agent loop did not stop in time")
	}
	log.Println("[agent-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "agent-service",
		"version": version,
	})
}
