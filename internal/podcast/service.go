package podcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/podforge/podforge/internal/common"
)

// ErrDispatchFailed wraps transport errors from the task queue. The job
// record has already been marked failed when this is returned.
var ErrDispatchFailed = errors.New("job dispatch failed")

// Dispatcher hands one accepted job to the asynchronous execution
// substrate. Everything past the publish is the worker's business.
type Dispatcher interface {
	PublishJob(ctx context.Context, ev JobEvent) error
}

type Service struct {
	repo            *Repo
	dispatcher      Dispatcher
	dispatchTimeout time.Duration
}

func NewService(repo *Repo, dispatcher Dispatcher, dispatchTimeout time.Duration) *Service {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 30 * time.Second
	}
	return &Service{repo: repo, dispatcher: dispatcher, dispatchTimeout: dispatchTimeout}
}

// Submit validates and sanitizes the request, persists a pending job and
// dispatches it. The record is created strictly before the publish so the
// worker can never observe an id without a row behind it.
func (s *Service) Submit(ctx context.Context, req *GenerationRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Sanitize()

	jobID, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:       jobID,
		Content:  req.Content,
		Language: req.Language,
		Status:   JobPending,
	}
	if req.Title != "" {
		t := req.Title
		job.Title = &t
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	ev := JobEvent{
		JobID:    jobID,
		Content:  req.Content,
		Language: req.Language,
		Title:    req.Title,
	}
	if err := s.dispatcher.PublishJob(dctx, ev); err != nil {
		// no worker will ever advance this job; fail it now so a later
		// status poll reflects reality instead of a forever-pending row.
		// The write must land even when the dispatch died with the
		// request context, so cancellation is stripped off.
		msg := fmt.Sprintf("dispatch failed: %v", err)
		if markErr := s.repo.MarkFailed(context.WithoutCancel(ctx), jobID, msg); markErr != nil {
			log.Printf("mark failed after dispatch error job=%s err=%v", jobID, markErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	return job, nil
}

// Status is a pure read; a miss surfaces as gorm.ErrRecordNotFound.
func (s *Service) Status(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

// RunSweeper evicts terminal jobs older than ttl every interval until
// the context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.DeleteTerminalBefore(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Printf("job sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("job sweep evicted=%d ttl=%s", n, ttl)
			}
		}
	}
}
