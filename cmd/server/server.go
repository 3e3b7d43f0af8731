package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trackup/config"
	"trackup/db"
	"trackup/handlers"
	"trackup/services"
	"trackup/services/agent"
	"trackup/services/calendar"
	"trackup/services/documents"
	"trackup/services/llm"
	"trackup/services/scheduler"
	"trackup/services/search"
	"trackup/services/taskindex"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	projectRepo, conversationRepo, closeStores := openStores(cfg, logger)
	defer closeStores()

	index := openTaskIndex(cfg, projectRepo, logger)

	projectService := services.NewProjectService(projectRepo, calendar.NewMockCalendar(logger), index, logger)
	projectHandler := handlers.NewProjectHandler(projectService, logger)

	model, err := llm.NewChatModel(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat model", zap.Error(err))
	}

	registry, err := agent.NewRegistry(agent.DefaultTools(
		projectService,
		documents.NewLocalSharer(logger),
		search.NewSerpSearcher(cfg.SerpAPIKey, logger),
	)...)
	if err != nil {
		logger.Fatal("Failed to build tool registry", zap.Error(err))
	}

	agentService := agent.NewService(model, registry, conversationRepo, logger,
		agent.WithMaxSteps(cfg.AgentMaxSteps))
	agentHandler := handlers.NewAgentHandler(agentService, cfg.ChatTimeout, logger)

	deadlines := scheduler.New(projectRepo, cfg.SchedulerInterval, cfg.ReminderWindow, logger)
	deadlines.Start(ctx)
	defer deadlines.Stop()

	router := mux.NewRouter()

	router.Use(requestIDMiddleware)
	router.Use(accessLogMiddleware(logger))
	router.Use(corsMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	agentHandler.RegisterRoutes(router)
	projectHandler.RegisterRoutes(router)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	registerStatic(router, cfg.StaticDir)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("addr", server.Addr),
			zap.String("model_provider", cfg.ModelProvider),
			zap.String("model", cfg.ModelName))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if level == "debug" {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapCfg.Build()
}

// openStores uses Postgres when DB_URL is set and falls back to process
// memory otherwise.
func openStores(cfg *config.Config, logger *zap.Logger) (db.ProjectRepository, db.ConversationRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DB_URL not set, using in-memory store")
		return db.NewInMemoryProjectRepository(), db.NewInMemoryConversationRepository(), func() {}
	}

	projectRepo, err := db.NewPostgresProjectRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize project database", zap.Error(err))
	}

	conversationRepo, err := db.NewPostgresConversationRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize conversation database", zap.Error(err))
	}

	return projectRepo, conversationRepo, func() {
		if err := projectRepo.Close(); err != nil {
			logger.Error("Failed to close project database", zap.Error(err))
		}
		if err := conversationRepo.Close(); err != nil {
			logger.Error("Failed to close conversation database", zap.Error(err))
		}
	}
}

// vectorIndexEnabled reports whether Pinecone can back task search. In-memory
// task ids restart at mock_1, so vectors would outlive the tasks they name.
func vectorIndexEnabled(cfg *config.Config) bool {
	return cfg.DatabaseURL != "" && cfg.PineconeAPIKey != "" && cfg.OpenAIAPIKey != ""
}

func openTaskIndex(cfg *config.Config, tasks taskindex.TaskLister, logger *zap.Logger) taskindex.Index {
	if !vectorIndexEnabled(cfg) {
		if cfg.PineconeAPIKey != "" && cfg.DatabaseURL == "" {
			logger.Warn("PINECONE_API_KEY ignored without DB_URL, using fuzzy task search")
		}
		return taskindex.NewFuzzyIndex(tasks)
	}

	index, err := taskindex.NewPineconeIndex(cfg.PineconeAPIKey, cfg.OpenAIAPIKey, cfg.PineconeIndexName, logger)
	if err != nil {
		logger.Error("Failed to initialize Pinecone task index, falling back to fuzzy search", zap.Error(err))
		return taskindex.NewFuzzyIndex(tasks)
	}
	return index
}

func registerStatic(router *mux.Router, dir string) {
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}).Methods("GET")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

const requestIDHeader = "X-Request-ID"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLogMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("HTTP request",
				zap.String("request_id", r.Header.Get(requestIDHeader)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
