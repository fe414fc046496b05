package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/xtding233/wish-backend/internal/account"
	"github.com/xtding233/wish-backend/internal/config"
	"github.com/xtding233/wish-backend/internal/dispatch"
	"github.com/xtding233/wish-backend/internal/ledger"
	"github.com/xtding233/wish-backend/internal/server"
	"github.com/xtding233/wish-backend/internal/wish"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := flag.String("config", envOr("WISH_CONFIG", "configs/wish.yaml"), "main config file")
	poolsDir := flag.String("pools", envOr("WISH_POOLS_DIR", ""), "directory of extra *.yaml pool files")
	watch := flag.Duration("watch", 2*time.Second, "config poll interval, 0 disables hot reload")
	debug := flag.Bool("debug", os.Getenv("WISH_DEBUG") != "", "development logging")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, config.Paths{Main: *cfgPath, PoolsDir: *poolsDir}, *watch); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	gin.SetMode(gin.ReleaseMode)
	return zap.NewProduction()
}

func run(log *zap.Logger, paths config.Paths, watchEvery time.Duration) error {
	loader := config.NewLoader(paths)
	snap, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("config loaded", zap.Strings("pools", snap.Order), zap.Strings("files", paths.Files()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, snap.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	ldg, closeLedger, err := openLedger(ctx, snap.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	disp, closeDisp, err := openDispatcher(snap.Dispatch, log)
	if err != nil {
		return err
	}
	defer closeDisp()

	engine := wish.New(snap, wish.Options{
		Store:      store,
		Ledger:     ldg,
		Dispatcher: disp,
		Logger:     log,
	})

	if watchEvery > 0 {
		w := config.NewFileWatcher(func() []string { return loader.Paths().Files() }, watchEvery, func(string) {
			_ = engine.Reload(loader)
		}, log)
		w.Start()
		defer w.Stop()
	}

	errCh := make(chan error, 2)

	httpSrv := &http.Server{
		Addr:              snap.Server.HTTPAddr,
		Handler:           server.NewHTTP(engine, loader, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	grpcSrv := server.NewGRPCServer(engine, log)
	if addr := snap.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", addr, err)
		}
		go func() {
			log.Info("grpc listening", zap.String("addr", addr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	grpcSrv.GracefulStop()
	return httpSrv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (account.Store, func(), error) {
	switch cfg.Type {
	case "yaml":
		s, err := account.NewFileStore(cfg.DataDir)
		return s, func() {}, err
	case "redis":
		addr := cfg.RedisAddr
		if addr == "" {
			addr = envOr("REDIS_ADDR", "127.0.0.1:6379")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		return account.NewRedisStore(client, cfg.KeyPrefix), func() { client.Close() }, nil
	default:
		return account.NewMemoryStore(), func() {}, nil
	}
}

func openLedger(ctx context.Context, cfg config.LedgerConfig) (ledger.Ledger, func(), error) {
	switch cfg.Type {
	case "none":
		return nil, func() {}, nil
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		l, err := ledger.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres ledger: %w", err)
		}
		if err := l.Migrate(ctx); err != nil {
			l.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return l, func() { l.Close() }, nil
	default:
		initial := decimal.Zero
		if cfg.InitialBalance != "" {
			v, err := decimal.NewFromString(cfg.InitialBalance)
			if err != nil {
				return nil, nil, fmt.Errorf("ledger.initial_balance: %w", err)
			}
			initial = v
		}
		return ledger.NewMemory(initial), func() {}, nil
	}
}

func openDispatcher(cfg config.DispatchConfig, log *zap.Logger) (dispatch.Dispatcher, func(), error) {
	local := dispatch.NewCommandDispatcher(dispatch.LogSink{Log: log}, log)
	if cfg.Type != "amqp" {
		return local, func() {}, nil
	}
	url := cfg.URL
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "wish.rewards"
	}
	routingKey := cfg.RoutingKey
	if routingKey == "" {
		routingKey = "reward"
	}
	d, err := dispatch.DialAMQP(url, exchange, routingKey)
	if err != nil {
		return nil, nil, err
	}
	// keep a local log of every command next to the published event
	return dispatch.Multi{d, local}, func() { d.Close() }, nil
}
