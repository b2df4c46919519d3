package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/touka-aoi/tanzbot/server"
	redisadapter "github.com/touka-aoi/tanzbot/server/adapter/redis"
	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/domain"
	"github.com/touka-aoi/tanzbot/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "server stopped with error", "err", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(utils.GetEnvDefault("LOG_LEVEL", "info"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func run(ctx context.Context) error {
	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		return errors.New("ADMIN_SECRET must be set")
	}

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "err", err)
		}
	}()

	pool, closePool, err := newNamePool(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	behaviors, err := application.LoadBehaviors(os.Getenv("BOT_PROFILES_DIR"))
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "behaviors loaded", "names", behaviors.Names())

	size := float32(utils.GetEnvInt("WORLD_SIZE", 4096)) / 2
	world := application.NewWorld(
		utils.GetEnvInt("MAX_CLIENTS", application.DefaultMaxClients),
		domain.Vec3{X: -size, Y: -size, Z: 0},
		domain.Vec3{X: size, Y: size, Z: 512},
	)
	manager := application.NewManager(world, behaviors,
		application.WithFillInterval(utils.GetEnvDuration("BOT_FILL_INTERVAL", application.DefaultFillInterval)),
	)
	if err := manager.Fill(domain.TeamAliens, utils.GetEnvInt("BOT_FILL_ALIENS", 0)); err != nil {
		return err
	}
	if err := manager.Fill(domain.TeamHumans, utils.GetEnvInt("BOT_FILL_HUMANS", 0)); err != nil {
		return err
	}

	room := domain.NewRoom("default", application.NewGame(manager))
	names := application.NewNameSync(pool, room, manager,
		application.WithSyncInterval(utils.GetEnvDuration("BOT_NAMES_SYNC_INTERVAL", application.DefaultNameSyncInterval)),
		application.WithPoolTimeout(utils.GetEnvDuration("BOT_NAMES_TIMEOUT", application.DefaultNamePoolTimeout)),
	)
	// ループの起動前に名前を手元へ用意しておき、最初のフィラーから名前を付ける
	if err := names.Prime(ctx); err != nil {
		slog.WarnContext(ctx, "initial bot name sync failed", "err", err)
	}

	var origins []string
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), server.Route(room, manager, names, []byte(adminSecret), origins))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return room.Run(egCtx)
	})
	eg.Go(func() error {
		return names.Run(egCtx)
	})
	eg.Go(func() error {
		slog.InfoContext(egCtx, "server listening", "addr", s.Addr())
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		slog.InfoContext(egCtx, "shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "graceful shutdown failed", "err", err)
			if err := s.Close(); err != nil {
				slog.ErrorContext(shutdownCtx, "forced close failed", "err", err)
			}
		}
		return nil
	})

	err = eg.Wait()

	// ループが止まった後なので、ボットの名前を直接プールへ返せる
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	names.Close(releaseCtx)

	slog.InfoContext(ctx, "server shutdown complete")
	return err
}

// newNamePool はREDIS_ADDRが設定されていればRedisの、なければプロセス内の名前プールを返します。
func newNamePool(ctx context.Context) (application.NamePool, func(), error) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return application.NewMemoryNamePool(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", redisAddr, err)
	}
	slog.InfoContext(ctx, "using redis name pool", "addr", redisAddr)
	return redisadapter.NewNamePool(rdb, utils.GetEnvDefault("BOT_NAMES_PREFIX", redisadapter.DefaultKeyPrefix)), func() { _ = rdb.Close() }, nil
}

// setupTracing はOTEL_EXPORTER_OTLP_ENDPOINTが設定されている場合にOTLP/gRPCでスパンを送ります。
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
