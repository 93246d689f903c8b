// Package sqlstore adapts the engine's Store interface to a GORM-backed
// relational table, for deployments that need job state to survive a
// restart. It is exercised by its own DSN-gated integration tests
// (sqlstore_test.go, skipped unless TEST_POSTGRES_DSN is set) rather than
// by the engine package's scenario suite, which runs against store.Memory.
//
// Scope: this reference store persists flat leaf jobs only. Sequence/Set
// composition is the in-memory store's job (store.Memory); wiring composite
// graphs through SQL as well would mean modeling the node tree relationally
// — see DESIGN.md for the trim rationale.
package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobRun is the persisted shape of a single leased leaf job: status-driven,
// claimed under SKIP LOCKED, with a heartbeat column used for stale-lease
// detection.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	JobType     string         `gorm:"column:job_type;not null;index"`
	Status      string         `gorm:"column:status;not null;index"` // queued | running | succeeded | failed
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb"`
	StatusInfo  string         `gorm:"column:status_info"`
	Attempts    int            `gorm:"column:attempts;not null;default:0"`
	DueTime     time.Time      `gorm:"column:due_time;not null;index"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()"`
}

func (JobRun) TableName() string { return "job_run" }

// WorkerLiveness is the persisted shape of a worker's last heartbeat.
type WorkerLiveness struct {
	MachineName        string    `gorm:"column:machine_name;primaryKey"`
	Parallelism        int       `gorm:"column:parallelism;not null"`
	PollingFrequencyMS int64     `gorm:"column:polling_frequency_ms;not null"`
	HeartBeatFreqMS    int64     `gorm:"column:heart_beat_frequency_ms;not null"`
	LastSeen           time.Time `gorm:"column:last_seen;not null;index"`
}

func (WorkerLiveness) TableName() string { return "worker_liveness" }

// AutoMigrate creates/updates the tables this store needs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&JobRun{}, &WorkerLiveness{})
}
