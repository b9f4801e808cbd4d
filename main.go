package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	accessapp "forsee-cloud/internal/access/application"
	accessmemory "forsee-cloud/internal/access/infrastructure/memory"
	accesssql "forsee-cloud/internal/access/infrastructure/sqlstore"
	accesshttp "forsee-cloud/internal/access/interfaces/http"
	"forsee-cloud/internal/assets/infrastructure/catalog"
	"forsee-cloud/internal/audit"
	"forsee-cloud/internal/auth"
	"forsee-cloud/internal/eventing"
	"forsee-cloud/internal/notify"
	"forsee-cloud/internal/observability/metrics"
	prediction "forsee-cloud/internal/prediction/domain"
	sessionapp "forsee-cloud/internal/session/application"
	session "forsee-cloud/internal/session/domain"
	runmemory "forsee-cloud/internal/session/infrastructure/memory"
	runsql "forsee-cloud/internal/session/infrastructure/sqlstore"
	sessionhttp "forsee-cloud/internal/session/interfaces/http"
	"forsee-cloud/internal/storage/sqldb"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx := context.Background()

	doc, err := catalog.Load(cfg.AssetCatalog)
	if err != nil {
		logger.Fatalf("asset catalog error: %v", err)
	}
	registry, err := doc.Registry(cfg.DefaultAssetID)
	if err != nil {
		logger.Fatalf("asset registry error: %v", err)
	}
	logger.Printf("asset catalog loaded: profiles=%d default=%s", registry.Len(), registry.DefaultID())
	engineOpts := doc.EngineOptions()
	if cfg.JitterSeed != "" {
		seed, err := strconv.ParseUint(cfg.JitterSeed, 10, 64)
		if err != nil {
			logger.Fatalf("PREDICTION_JITTER_SEED must be an unsigned integer: %v", err)
		}
		engineOpts = append(engineOpts, prediction.WithJitterSource(prediction.NewSeededSource(seed)))
	}
	engine := prediction.NewEngine(engineOpts...)

	var (
		rawDB       *sql.DB
		requestRepo accessapp.RoleRequestRepository
		runRepo     sessionapp.RunRepository
		auditLogger audit.Logger
	)
	if cfg.StoreDSN != "" {
		db, err := sqldb.Open(cfg.StoreDSN)
		if err != nil {
			logger.Fatalf("store open error: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("store ping error: %v", err)
		}
		rawDB = db.DB
		if requestRepo, err = accesssql.NewRoleRequestRepository(ctx, db); err != nil {
			logger.Fatalf("role request store error: %v", err)
		}
		if runRepo, err = runsql.NewRunRepository(ctx, db); err != nil {
			logger.Fatalf("prediction run store error: %v", err)
		}
		if auditLogger, err = audit.NewRepository(ctx, db); err != nil {
			logger.Fatalf("audit store error: %v", err)
		}
	} else {
		logger.Printf("STORE_DSN not set; using in-memory stores")
		requestRepo = accessmemory.NewRoleRequestRepository()
		runRepo = runmemory.NewRunRepository(cfg.RunLimit)
		auditLogger = audit.NewLogWriter(logger)
	}

	metrics.Init(rawDB, logger)
	bus := eventing.NewInMemoryBus()

	if err := wireNotifier(bus, cfg, logger); err != nil {
		logger.Fatalf("notifier error: %v", err)
	}
	eventing.Handle(bus, func(ctx context.Context, evt session.PredictionCompleted) error {
		logger.Printf("event prediction completed: run=%s asset=%s risk=%s", evt.RunID, evt.AssetID, evt.RiskLevel)
		return nil
	})
	eventing.Handle(bus, func(ctx context.Context, evt session.ActionDispatched) error {
		logger.Printf("event action dispatched: ticket=%s asset=%s action=%q", evt.TicketID, evt.AssetID, evt.Action)
		return nil
	})

	accessService, err := accessapp.NewService(requestRepo,
		accessapp.WithEventBus(bus),
		accessapp.WithAuditLogger(auditLogger),
		accessapp.WithLogger(logger),
		accessapp.WithClock(systemClock{}),
	)
	if err != nil {
		logger.Fatalf("access service error: %v", err)
	}
	orchestrator, err := sessionapp.NewOrchestrator(accessService, registry, engine, runRepo,
		sessionapp.WithEventBus(bus),
		sessionapp.WithAuditLogger(auditLogger),
		sessionapp.WithLogger(logger),
		sessionapp.WithClock(systemClock{}),
	)
	if err != nil {
		logger.Fatalf("session orchestrator error: %v", err)
	}

	sessionHandler, err := sessionhttp.NewHandler(accessService, orchestrator, logger)
	if err != nil {
		logger.Fatalf("session handler error: %v", err)
	}
	roleRequestHandler, err := accesshttp.NewHandler(accessService)
	if err != nil {
		logger.Fatalf("role request handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/session", sessionHandler)
	mux.Handle("/api/v1/session/", sessionHandler)
	mux.Handle("/api/v1/assets", sessionHandler)
	mux.Handle("/api/v1/assets/", sessionHandler)
	mux.Handle("/api/v1/predictions/", sessionHandler)
	mux.Handle("/api/v1/role-requests", roleRequestHandler)
	mux.Handle("/api/v1/role-requests/", roleRequestHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := correlationMiddleware(loggingMiddleware(authMiddleware.Wrap(mux), logger))
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func wireNotifier(bus eventing.EventBus, cfg config, logger *log.Logger) error {
	var channel notify.Channel = notify.NewLogChannel(logger)
	if cfg.AdminWebhookURL != "" {
		webhook, err := notify.NewWebhookChannel(cfg.AdminWebhookURL)
		if err != nil {
			return err
		}
		channel = notify.NewMultiChannel(webhook, channel)
	}
	tpl, err := notify.NewTemplate(cfg.AdminNotifyTemplate)
	if err != nil {
		return err
	}
	notifier, err := notify.NewNotifier(channel, tpl,
		notify.WithLogger(logger),
		notify.WithClock(systemClock{}),
		notify.WithRequestTimeout(cfg.AdminNotifyTimeout),
		notify.WithDedupeWindow(cfg.AdminNotifyDedupeWindow),
		notify.WithReviewBaseURL(cfg.ReviewBaseURL),
	)
	if err != nil {
		return err
	}
	eventing.Handle(bus, notifier.HandleRoleRequested)
	return nil
}

type config struct {
	HTTPAddr                string
	JWTSecret               string
	StoreDSN                string
	AssetCatalog            string
	DefaultAssetID          string
	JitterSeed              string
	RunLimit                int
	AdminWebhookURL         string
	AdminNotifyTemplate     string
	AdminNotifyTimeout      time.Duration
	AdminNotifyDedupeWindow time.Duration
	ReviewBaseURL           string
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:                getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:               getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		StoreDSN:                getenvDefault("STORE_DSN", getenvDefault("DATABASE_URL", "")),
		AssetCatalog:            getenvDefault("ASSET_CATALOG", ""),
		DefaultAssetID:          getenvDefault("DEFAULT_ASSET_ID", ""),
		JitterSeed:              getenvDefault("PREDICTION_JITTER_SEED", ""),
		RunLimit:                getenvIntDefault("PREDICTION_RUN_LIMIT", runmemory.DefaultRunLimit),
		AdminWebhookURL:         getenvDefault("ADMIN_WEBHOOK_URL", ""),
		AdminNotifyTemplate:     getenvDefault("ADMIN_NOTIFY_TEMPLATE", ""),
		AdminNotifyTimeout:      getenvDuration("ADMIN_NOTIFY_TIMEOUT", 5*time.Second),
		AdminNotifyDedupeWindow: getenvDuration("ADMIN_NOTIFY_DEDUP_WINDOW", 0),
		ReviewBaseURL:           getenvDefault("ADMIN_REVIEW_BASE_URL", ""),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(eventing.WithCorrelationID(r.Context(), id)))
	})
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s request_id=%s", r.Method, r.URL.Path, resp.status, time.Since(start),
			eventing.CorrelationIDFromContext(r.Context()))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
