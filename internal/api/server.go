package api

import (
	"context"
	"log/slog"
	"net/http"

	"geowatch/internal/auth"
	"geowatch/internal/config"
	"geowatch/internal/store"
)

// Server holds the HTTP handlers and their shared dependencies.
type Server struct {
	Store  store.Store
	Broker EventBroker
	Auth   *auth.Verifier
	Cfg    config.Config
	Log    *slog.Logger
}

// NewServer wires the storage and broker backends from configuration.
// Without DATABASE_URL the in-memory store is used, seeded with demo
// records; without REDIS_URL events stay in-process.
func NewServer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	s := &Server{
		Auth: auth.NewVerifierFromEnv(),
		Cfg:  cfg,
		Log:  log,
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s.Store = pg
		log.Info("store: postgres")
	} else {
		mem := store.NewMemory()
		mem.SeedDemo()
		s.Store = mem
		log.Info("store: memory (demo seed)")
	}

	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, log)
		if err != nil {
			return nil, err
		}
		s.Broker = rb
		log.Info("broker: redis")
	} else {
		s.Broker = NewMemoryBroker()
		log.Info("broker: memory")
	}

	return s, nil
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/records", s.handleListRecords)
	mux.HandleFunc("GET /v1/missions", s.handleListMissions)
	mux.HandleFunc("POST /v1/missions", s.handleCreateMission)
	mux.HandleFunc("GET /v1/missions/{id}", s.handleGetMission)
	mux.HandleFunc("GET /v1/bounds", s.handleBounds)
	mux.HandleFunc("GET /v1/map/ws", s.handleMapWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	return mux
}

func (s *Server) Close() {
	s.Store.Close()
}
