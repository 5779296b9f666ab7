package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cgiftledger/audit"
	"cgiftledger/config"
	"cgiftledger/core/events"
	"cgiftledger/native/fees"
	"cgiftledger/native/governance"
	"cgiftledger/native/liquidity"
	"cgiftledger/native/staking"
	"cgiftledger/native/token"
	"cgiftledger/observability/logging"
	"cgiftledger/observability/metrics"
	"cgiftledger/state"
	"cgiftledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CGIFT_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("cgift-ledgerd", env, logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	auditStore, err := audit.Open(cfg.AuditDriver, cfg.AuditDSN)
	if err != nil {
		panic(fmt.Sprintf("Failed to open audit store: %v", err))
	}
	defer auditStore.Close()

	store := state.NewStore(db)
	store.SetAuditSink(auditStore)
	store.SetLogger(logger)

	emitter := &ledgerEmitter{log: logger, metrics: metrics.Ledger()}

	ledger := token.NewLedger(cfg.Economics.Genesis())
	ledger.SetState(store)
	ledger.SetEmitter(emitter)

	stakingEngine := staking.NewEngine()
	stakingEngine.SetState(store)
	stakingEngine.SetEmitter(emitter)
	stakingEngine.SetParams(cfg.Economics.StakingParams())
	stakingEngine.SetLogger(logger)

	liquidityEngine := liquidity.NewEngine()
	liquidityEngine.SetState(store)
	liquidityEngine.SetEmitter(emitter)
	liquidityEngine.SetRewardRate(cfg.Economics.LiquidityRate())
	liquidityEngine.SetLogger(logger)

	governanceEngine := governance.NewEngine()
	governanceEngine.SetState(store)
	governanceEngine.SetEmitter(emitter)
	governanceEngine.SetPolicy(cfg.Economics.GovernancePolicy())

	waterfall := fees.NewWaterfall()
	waterfall.SetState(store)
	waterfall.SetLedger(ledger)
	waterfall.SetEmitter(emitter)
	if err := waterfall.SetPolicy(cfg.Economics.SplitPolicy()); err != nil {
		panic(fmt.Sprintf("Invalid fee split: %v", err))
	}

	tok, err := ledger.Initialize()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize token supply: %v", err))
	}
	logger.Info("token supply ready",
		"symbol", tok.Symbol,
		"totalSupply", tok.TotalSupply.String(),
		"circulating", tok.CirculatingSupply.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runAccrual(ctx, logger, cfg.AccrualIntervalDuration(), stakingEngine, liquidityEngine)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := ledger.Info(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http listener started", "addr", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http listener failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.Any("error", err))
	}
}

// runAccrual drives the periodic reward sweeps until the context is
// cancelled. Staking and liquidity run back to back on the same tick so
// their pending balances stay aligned.
func runAccrual(ctx context.Context, logger *slog.Logger, interval time.Duration, stakingEngine *staking.Engine, liquidityEngine *liquidity.Engine) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if result, err := stakingEngine.Accrue(); err != nil {
				logger.Error("staking accrual failed", slog.Any("error", err))
			} else {
				metrics.Ledger().AccrualRun(result.Skipped)
				logger.Debug("staking accrual complete", "updated", result.Updated, "skipped", result.Skipped)
			}
			if result, err := liquidityEngine.Accrue(); err != nil {
				logger.Error("liquidity accrual failed", slog.Any("error", err))
			} else {
				metrics.Ledger().AccrualRun(result.Skipped)
				logger.Debug("liquidity accrual complete", "updated", result.Updated, "skipped", result.Skipped)
			}
		}
	}
}

// ledgerEmitter bridges domain events into structured logs and Prometheus
// counters.
type ledgerEmitter struct {
	log     *slog.Logger
	metrics *metrics.LedgerMetrics
}

func (e *ledgerEmitter) Emit(evt events.Event) {
	switch typed := evt.(type) {
	case events.Staked:
		e.metrics.PositionOpened("staking")
	case events.LiquidityAdded:
		e.metrics.PositionOpened("liquidity")
	case events.RewardsClaimed:
		e.metrics.RewardClaimed(typed.RewardType)
	case events.TokenBurned:
		e.metrics.TokenBurned()
	case events.FeesDistributed:
		e.metrics.FeeDistributed()
	case events.VoteCast:
		e.metrics.VoteCast(typed.Support)
	}
	e.log.Debug("event", "type", evt.EventType(), "attrs", evt.Attributes())
}
