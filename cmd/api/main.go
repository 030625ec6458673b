package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/db"
	"github.com/podforge/podforge/internal/httpapi"
	"github.com/podforge/podforge/internal/podcast"
	"github.com/podforge/podforge/internal/ratelimit"
	"github.com/podforge/podforge/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := podcast.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	repo := podcast.NewRepo(gdb)

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue, cfg.DispatchTimeout)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
	default:
		mem := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		defer mem.Close()
		limiter = mem
	}

	svc := podcast.NewService(repo, pub, cfg.DispatchTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunSweeper(ctx, cfg.JobSweepInterval, cfg.JobTTL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(svc, limiter, cfg.MediaDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening addr=%s queue=%s limiter=%s", cfg.HTTPAddr, cfg.RabbitQueue, cfg.RateLimitBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
