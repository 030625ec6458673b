package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/db"
	"github.com/podforge/podforge/internal/podcast"
	"github.com/podforge/podforge/internal/synth"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := podcast.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	repo := podcast.NewRepo(gdb)

	// Provider registry (route by configured provider name)
	reg := synth.NewRegistry()
	reg.Register("sarvam", func(ctx context.Context, speaker string) (synth.Provider, error) {
		_ = ctx
		if speaker == "" {
			speaker = cfg.SarvamSpeaker
		}
		return synth.NewSarvamProvider(cfg.SarvamBaseURL, cfg.SarvamAPIKey, speaker, cfg.MediaDir), nil
	})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil)
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d provider=%s", cfg.RabbitQueue, concurrency, cfg.SynthProvider)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var ev podcast.JobEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, repo, reg, cfg.SynthProvider, ev); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, ev.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, ev.JobID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleJob is the sole writer past a job's creation: processing before
// the pipeline runs, one terminal status after.
func handleJob(ctx context.Context, repo *podcast.Repo, reg *synth.Registry, providerName string, ev podcast.JobEvent) error {
	start := time.Now()

	if err := repo.MarkProcessing(ctx, ev.JobID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// evicted or never created; nothing to advance
			return err
		}
		if errors.Is(err, podcast.ErrInvalidTransition) {
			// already past pending, most likely a redelivery
			log.Printf("job %s already advanced, skipping", ev.JobID)
			return nil
		}
		return err
	}

	provider, err := reg.Get(ctx, providerName, "")
	if err != nil {
		_ = repo.MarkFailed(ctx, ev.JobID, err.Error())
		return err
	}

	res, err := provider.Synthesize(ctx, synth.Request{
		ID:       ev.JobID,
		Content:  ev.Content,
		Language: ev.Language,
		Title:    ev.Title,
	})
	if err != nil {
		if markErr := repo.MarkFailed(ctx, ev.JobID, err.Error()); markErr != nil {
			log.Printf("mark failed job=%s err=%v", ev.JobID, markErr)
		}
		return err
	}

	result := &podcast.Result{
		AudioURL:    res.AudioURL,
		Title:       ev.Title,
		Language:    ev.Language,
		DurationSec: res.DurationSec,
	}
	if err := repo.MarkCompleted(ctx, ev.JobID, result); err != nil {
		return err
	}

	log.Printf("job %s completed cost=%s audio=%s", ev.JobID, time.Since(start), res.AudioURL)
	return nil
}
