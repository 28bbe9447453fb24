// paperd ingests papers, builds a per-tenant knowledge graph, and serves it
// over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papergraph/paperd/pkg/api"
	"github.com/papergraph/paperd/pkg/cache"
	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/graphstore/postgres"
	"github.com/papergraph/paperd/pkg/llm"
	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/pipeline"
	"github.com/papergraph/paperd/pkg/queue"
	"github.com/papergraph/paperd/pkg/secrets"
	"github.com/papergraph/paperd/pkg/usage"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("PAPERD_CONFIG", ""), "Path to configuration YAML overlay")
	store := flag.String("store", getEnv("PAPERD_STORE", "memory"), "Graph store backend: memory or postgres")
	flag.Parse()

	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configPath)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	gs, closeStore, err := openStore(ctx, *store)
	if err != nil {
		slog.Error("failed to open graph store", "store", *store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	memTier := cache.NewMemoryTier(5 * time.Minute)
	var redisTier *cache.RedisTier
	if redisURL := os.Getenv("PAPERD_REDIS_URL"); redisURL != "" {
		redisTier, err = cache.NewRedisTier(ctx, redisURL, "paperd", time.Hour)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	}
	callCache := cache.NewCallCache(memTier, redisTier)
	derivedCache := cache.NewDerivedCache(memTier, redisTier)

	sealer, err := newSealer()
	if err != nil {
		slog.Error("failed to initialize secrets sealer", "error", err)
		os.Exit(1)
	}

	ledger := usage.NewLedger(gs)
	resolver := tenantClientResolver(gs, sealer, cfg.LLM.HostedAPIKeyEnv)
	runner := llm.NewRunner(resolver, callCache, ledger, int64(cfg.LLM.MaxConcurrentCalls), cfg.LLM.HostedMarkup, cfg.LLM.Debug)

	driver := pipeline.NewDriver(gs, runner, derivedCache, nil)
	exec := orchestrator.NewExecutor(gs, driver, cfg.Reasoning)

	demoAllowlist := orchestrator.NewStaticDemoAllowlist(splitNonEmpty(os.Getenv("PAPERD_DEMO_TENANTS"))...)
	limiter := usage.NewLimiter(ledger)
	orch := orchestrator.New(gs, limiter, cfg.RateLimit, cfg.Fetch, orchestrator.WithDemoAllowlist(demoAllowlist))

	pool := queue.NewWorkerPool(podID(), gs, &cfg.Queue, exec)
	if err := pool.Start(ctx); err != nil {
		slog.Error("failed to start worker pool", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(orch, pool, pgxPoolOf(gs))

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		slog.Info("paperd listening", "addr", cfg.Server.ListenAddr, "store", *store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "error", err)
	}
	pool.Stop()
}

// openStore builds the configured graphstore.GraphStore backend and
// returns a cleanup func to release its resources.
func openStore(ctx context.Context, kind string) (graphstore.GraphStore, func(), error) {
	switch kind {
	case "memory":
		return memstore.New(), func() {}, nil
	case "postgres":
		dsn := os.Getenv("PAPERD_DATABASE_URL")
		if dsn == "" {
			return nil, nil, fmt.Errorf("PAPERD_DATABASE_URL must be set for -store=postgres")
		}
		client, err := postgres.NewClient(ctx, postgres.Config{
			DSN:             dsn,
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want memory or postgres)", kind)
	}
}

// pgxPoolOf extracts the underlying *pgxpool.Pool for the /healthz check
// when gs is a postgres.Client, or nil for every other backend.
func pgxPoolOf(gs graphstore.GraphStore) *pgxpool.Pool {
	type pooler interface{ Pool() *pgxpool.Pool }
	if p, ok := gs.(pooler); ok {
		return p.Pool()
	}
	return nil
}

func newSealer() (*secrets.Sealer, error) {
	key := os.Getenv("PAPERD_MASTER_KEY")
	if key == "" {
		key = "paperd-development-only-master-key"
		slog.Warn("PAPERD_MASTER_KEY not set, using an insecure development default")
	}
	return secrets.NewSealer([]byte(key))
}

// tenantClientResolver builds an llm.ClientResolver that looks up each
// tenant's TenantSettings and returns either the process's hosted client
// or a client built from the tenant's decrypted byo_key.
func tenantClientResolver(gs graphstore.GraphStore, sealer *secrets.Sealer, hostedAPIKeyEnv string) llm.ClientResolver {
	hostedClient := llm.NewAnthropicClient(os.Getenv(hostedAPIKeyEnv))

	return func(ctx context.Context, tenantID string) (llm.ModelClient, string, error) {
		settings, err := gs.GetTenantSettings(ctx, tenantID)
		if err != nil {
			return nil, "", fmt.Errorf("resolve llm client for tenant %s: %w", tenantID, err)
		}
		if settings == nil || settings.ExecutionMode != "byo_key" {
			return hostedClient, "hosted", nil
		}

		plaintext, err := sealer.Open(settings.EncryptedAPIKey)
		if err != nil {
			return nil, "", fmt.Errorf("decrypt byo_key for tenant %s: %w", tenantID, err)
		}
		return llm.NewAnthropicClient(string(plaintext)), "byo_key", nil
	}
}

func podID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "paperd-local"
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
