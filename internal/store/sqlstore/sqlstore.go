package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
	"github.com/fenwick-labs/jobengine/internal/store"
)

// Store adapts *gorm.DB to store.Store.
type Store struct {
	db *gorm.DB

	// maxAttempts bounds how many times a failed job is re-claimed before
	// AcquireJob stops offering it.
	maxAttempts int
	retryDelay  time.Duration
	// staleAfter reclaims a running job whose heartbeat_at is older than
	// this, the SQL store's analogue of a lease deadline. heartbeat_at is
	// set when the job is claimed and is not refreshed while it runs.
	staleAfter time.Duration
}

// New wraps db as a store.Store. Call AutoMigrate(db) once at startup
// before using it.
func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		maxAttempts: 5,
		retryDelay:  30 * time.Second,
		staleAfter:  30 * time.Minute,
	}
}

// QueueAsync persists a single leaf job. Sequence/Set specs are rejected;
// see the package doc comment for why composite graphs are out of scope for
// this store.
func (s *Store) QueueAsync(ctx context.Context, spec store.Spec) (string, error) {
	if spec.Kind != store.KindSingle {
		return "", fmt.Errorf("sqlstore: only single-job specs are supported, got kind=%v", spec.Kind)
	}
	row := &JobRun{
		ID:      uuid.New(),
		JobType: spec.JobType,
		Status:  "queued",
		Payload: datatypes.JSON(spec.Input),
		DueTime: spec.DueTime,
	}
	if row.Payload == nil {
		row.Payload = datatypes.JSON([]byte("{}"))
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("sqlstore: queue job: %w", err)
	}
	return row.ID.String(), nil
}

// AcquireJob claims the oldest runnable row under SKIP LOCKED: runnable
// means queued-and-due, or failed-and-past-retry-delay, or
// running-and-heartbeat-stale.
func (s *Store) AcquireJob(ctx context.Context) (*jobrun.Description, error) {
	now := time.Now()
	retryCutoff := now.Add(-s.retryDelay)
	staleCutoff := now.Add(-s.staleAfter)

	var claimed *JobRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row JobRun
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					(status = ? AND due_time <= ?)
					OR (status = ? AND attempts < ? AND (last_error_at IS NULL OR last_error_at < ?))
					OR (status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?)
				)
			`, "queued", now, "failed", s.maxAttempts, retryCutoff, "running", staleCutoff).
			Order("created_at ASC")
		if err := q.First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		upd := tx.Model(&JobRun{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
			"status":       "running",
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if upd.Error != nil {
			return upd.Error
		}
		claimed = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: acquire job: %w", err)
	}
	if claimed == nil {
		return nil, nil
	}
	return &jobrun.Description{
		ID:      claimed.ID.String(),
		Type:    claimed.JobType,
		Input:   []byte(claimed.Payload),
		DueTime: claimed.DueTime,
	}, nil
}

// ReleaseJob applies result to the row identified by id.
func (s *Store) ReleaseJob(ctx context.Context, id string, result jobrun.Result) error {
	rowID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("sqlstore: release job: invalid id %q: %w", id, err)
	}
	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}

	switch result.State {
	case jobrun.Finished:
		updates["status"] = "succeeded"
		updates["status_info"] = result.StatusInfo
		updates["locked_at"] = nil
	case jobrun.Reschedule:
		updates["status"] = "queued"
		updates["due_time"] = result.DueTime
		updates["locked_at"] = nil
	case jobrun.Error:
		updates["status"] = "failed"
		updates["status_info"] = result.StatusInfo
		updates["last_error_at"] = now
		updates["locked_at"] = nil
	default:
		return fmt.Errorf("sqlstore: release job: unknown result state %v", result.State)
	}

	res := s.db.WithContext(ctx).Model(&JobRun{}).Where("id = ?", rowID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: release job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlstore: release unknown job id=%s", id)
	}
	return nil
}

// Heartbeat upserts the caller's worker-liveness row.
func (s *Store) Heartbeat(ctx context.Context, machineName string, parallelism int, pollingFrequency, heartBeatFrequency time.Duration) error {
	row := &WorkerLiveness{
		MachineName:        machineName,
		Parallelism:        parallelism,
		PollingFrequencyMS: pollingFrequency.Milliseconds(),
		HeartBeatFreqMS:    heartBeatFrequency.Milliseconds(),
		LastSeen:           time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "machine_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"parallelism", "polling_frequency_ms", "heart_beat_frequency_ms", "last_seen"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("sqlstore: heartbeat: %w", err)
	}
	return nil
}

// MarshalInput is a small helper QueueAsync callers use to build a JSON
// payload from a Go value.
func MarshalInput(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}
