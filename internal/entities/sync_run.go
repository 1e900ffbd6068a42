package entities

import (
	"time"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
)

// SyncRun records one pass over the books directory.
type SyncRun struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	RunID       string      `gorm:"size:36;uniqueIndex" json:"run_id"`
	Trigger     SyncTrigger `gorm:"size:20" json:"trigger"`
	Status      SyncStatus  `gorm:"size:20;index" json:"status"`
	BooksPath   string      `gorm:"size:1024" json:"books_path"`
	WindowFrom  string      `gorm:"size:10" json:"window_from"`
	WindowTo    string      `gorm:"size:10" json:"window_to"`
	FilesTotal  int         `json:"files_total"`
	FilesFailed int         `json:"files_failed"`
	Inserted    int         `json:"inserted"`
	Duplicate   int         `json:"duplicate"`
	Failed      int         `json:"failed"`
	Errors      string      `gorm:"type:text" json:"errors,omitempty"` // JSON array of errors
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
