package storage

import (
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// UpsertResult reports what an UpsertCharges call did.
type UpsertResult struct {
	Inserted int
	Updated  int
	// Inconsistent lists charges whose preserved local splits no longer sum to
	// the refreshed remote amount. They are stored as-is and will fail push
	// validation until the decision is redone.
	Inconsistent []string
	// Conflicts lists synced charges whose local category was kept because
	// the ledger sent them uncategorized.
	Conflicts []string
}

// Decision is a categorization chosen on a review surface.
// Exactly one of CategoryID or Splits must be set.
type Decision struct {
	ChargeID     string
	CategoryID   string
	CategoryName string
	Splits       []model.Split
	// Items are item-level choices recorded alongside the charge decision.
	Items []ItemDecision
	// Stage sends the decision straight to pending-push.
	Stage bool
}

// ItemDecision records the category chosen for one order item.
type ItemDecision struct {
	OrderID      string
	Description  string
	CategoryID   string
	CategoryName string
}

// SyncRun is the audit record of one pull, push or reconcile run.
type SyncRun struct {
	ID             int64      `json:"id"`
	UUID           string     `json:"uuid"`
	Operation      string     `json:"operation"`
	Mode           string     `json:"mode,omitempty"`
	Scope          string     `json:"scope,omitempty"`
	DryRun         bool       `json:"dry_run"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Status         string     `json:"status"`
	RecordsFetched int        `json:"records_fetched"`
	RecordsWritten int        `json:"records_written"`
	RecordsFailed  int        `json:"records_failed"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// Sync run statuses
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
)

// RunCounts are the totals recorded when a run completes.
type RunCounts struct {
	Fetched int
	Written int
	Failed  int
}

// APICall is the audit record of one remote write.
type APICall struct {
	ID           int64     `json:"id"`
	RunID        int64     `json:"run_id"`
	ChargeID     string    `json:"charge_id"`
	Method       string    `json:"method"`
	RequestJSON  string    `json:"request_json"`
	ResponseJSON string    `json:"response_json,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CalledAt     time.Time `json:"called_at"`
}

// Stats is a snapshot of store contents.
type Stats struct {
	Charges         int                      `json:"charges"`
	ByStatus        map[model.SyncStatus]int `json:"by_status"`
	Uncategorized   int                      `json:"uncategorized"`
	Conflicts       int                      `json:"conflicts"`
	Orders          int                      `json:"orders"`
	Links           int                      `json:"links"`
	StrictLinks     int                      `json:"strict_links"`
	ExtendedLinks   int                      `json:"extended_links"`
	DuplicateLinks  int                      `json:"duplicate_links"`
	Categorizations int                      `json:"categorizations"`
	Categories      int                      `json:"categories"`
	LedgerLastSync  *time.Time               `json:"ledger_last_sync,omitempty"`
	OrdersLastSync  *time.Time               `json:"orders_last_sync,omitempty"`
}
