// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/codeclash/codeclash/internal/cache"
	"github.com/codeclash/codeclash/internal/config"
	"github.com/codeclash/codeclash/internal/database"
	"github.com/codeclash/codeclash/internal/match"
	"github.com/codeclash/codeclash/internal/middleware"
	"github.com/codeclash/codeclash/internal/models"
	"github.com/codeclash/codeclash/internal/problems"
	"github.com/codeclash/codeclash/internal/registry"
	"github.com/codeclash/codeclash/internal/ws"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.FromEnv()

	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	store := problems.NewPostgres(pool)

	// Fresh lobbies get a random problem sequence; its length fixes the
	// number of rounds for the lobby's lifetime.
	seed := func(ctx context.Context, lobbyName string) ([]models.Problem, error) {
		return store.RandomSet(ctx, cfg.RoundsPerMatch)
	}
	reg := registry.NewRedis(rdb, seed)

	hub := ws.NewHub(logger)
	machine := match.NewMachine(reg, store, hub, logger, cfg.ProblemLanguage)

	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.Handler(logger, hub, machine, cfg.SocketOrigin))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on :%s", cfg.Port)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}
