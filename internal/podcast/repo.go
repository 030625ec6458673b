package podcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when an update would move a job
// backwards, e.g. out of a terminal status.
var ErrInvalidTransition = errors.New("invalid job status transition")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Job{})
}

func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = JobPending
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJob(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkProcessing advances a pending job. The worker is the only caller.
func (r *Repo) MarkProcessing(ctx context.Context, id string) error {
	return r.guardedUpdate(ctx, id,
		[]JobStatus{JobPending},
		map[string]any{"status": JobProcessing},
	)
}

// MarkCompleted moves a non-terminal job to completed and records the result.
// The result is marshalled here: column-keyed Updates bypass gorm's field
// serializer, so the raw struct must never reach the driver.
func (r *Repo) MarkCompleted(ctx context.Context, id string, res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.guardedUpdate(ctx, id,
		[]JobStatus{JobPending, JobProcessing},
		map[string]any{
			"status": JobCompleted,
			"result": string(payload),
			"error":  nil,
		},
	)
}

// MarkFailed moves a non-terminal job to failed and records the error.
func (r *Repo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.guardedUpdate(ctx, id,
		[]JobStatus{JobPending, JobProcessing},
		map[string]any{
			"status": JobFailed,
			"error":  errMsg,
			"result": nil,
		},
	)
}

// guardedUpdate applies values only when the job is currently in one of
// the allowed statuses, making the pending -> processing -> terminal
// ordering durable rather than advisory.
func (r *Repo) guardedUpdate(ctx context.Context, id string, from []JobStatus, values map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		// distinguish an unknown id from a disallowed transition
		var count int64
		if err := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// DeleteTerminalBefore evicts completed and failed jobs last touched
// before the cutoff. Pending and processing jobs are never evicted.
func (r *Repo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []JobStatus{JobCompleted, JobFailed}, cutoff).
		Delete(&Job{})
	return tx.RowsAffected, tx.Error
}
