package models

import (
	"time"
)

// JobRun is one persisted pipeline execution. Rows are written when a
// run starts and updated once with the outcome.
type JobRun struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AccountID  string     `gorm:"index" json:"accountId"`
	Role       string     `json:"role"`
	Pairs      int        `json:"pairs"`
	Status     string     `json:"status"` // running|succeeded|failed
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
