package storage

import (
	"context"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// Repository defines the complete storage interface.
// The sync engine, matcher and API depend on the narrower interfaces below.
type Repository interface {
	ChargeRepository
	OrderRepository
	MatchRepository
	CategorizationRepository
	SyncStateRepository
	PullRepository
	SyncRunRepository
	APICallRepository
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// ChargeRepository handles ledger charges
type ChargeRepository interface {
	// UpsertCharges applies pulled charges with the status-keyed merge policy
	UpsertCharges(ctx context.Context, batch []model.Charge) (*UpsertResult, error)

	// GetCharge retrieves a charge with its splits
	GetCharge(ctx context.Context, id string) (*model.Charge, error)

	// ListCharges returns charges ordered by date then ID
	ListCharges(ctx context.Context, filter model.ChargeFilter) ([]model.Charge, error)

	// PendingPush returns pending-push charges, oldest modification first
	PendingPush(ctx context.Context) ([]model.Charge, error)

	// MarkPushed moves pending-push charges to synced; other statuses are untouched
	MarkPushed(ctx context.Context, ids ...string) (int, error)

	// ApplyDecision records a review decision and its history entries
	ApplyDecision(ctx context.Context, d Decision) (*model.Charge, error)

	// StageForPush moves locally-modified charges to pending-push
	StageForPush(ctx context.Context, ids ...string) (int, error)

	// DiscardDecisions returns charges to their last ledger category
	DiscardDecisions(ctx context.Context, ids ...string) (int, error)

	// RequeueConflicts moves charges in conflict to pending-push
	RequeueConflicts(ctx context.Context, ids ...string) (int, error)
}

// OrderRepository handles cached orders
type OrderRepository interface {
	UpsertOrders(ctx context.Context, batch []model.Order) (int, error)
	UpsertOrderItems(ctx context.Context, orderID string, items []model.OrderItem) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	FindCandidateOrders(ctx context.Context, q model.CandidateQuery) ([]model.Order, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
}

// MatchRepository handles derived match links
type MatchRepository interface {
	RecordMatch(ctx context.Context, link model.MatchLink) error
	ClearMatch(ctx context.Context, chargeID string) error
	ReplaceMatches(ctx context.Context, links []model.MatchLink) error
	ListMatches(ctx context.Context) ([]model.MatchLink, error)
	MatchForCharge(ctx context.Context, chargeID string) (*model.MatchLink, error)
}

// CategorizationRepository handles the append-only history and ledger categories
type CategorizationRepository interface {
	AppendCategorization(ctx context.Context, rec model.CategorizationRecord) (bool, error)
	ListCategorizations(ctx context.Context) ([]model.CategorizationRecord, error)
	UpsertCategories(ctx context.Context, cats []model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// SyncStateRepository handles pull checkpoints
type SyncStateRepository interface {
	GetSyncState(ctx context.Context, source model.Source) (*model.SyncState, error)
	SaveSyncState(ctx context.Context, state model.SyncState) error
}

// PullRepository applies a completed pull of one source atomically
type PullRepository interface {
	ApplyLedgerPull(ctx context.Context, pull LedgerPull) (*LedgerPullResult, error)
	ApplyOrderPull(ctx context.Context, orders []model.Order, state *model.SyncState) (int, error)
}

// SyncRunRepository handles sync run tracking
type SyncRunRepository interface {
	// StartSyncRun records the start of a run and returns the run ID
	StartSyncRun(ctx context.Context, run SyncRun) (int64, error)

	// CompleteSyncRun records the completion of a run
	CompleteSyncRun(ctx context.Context, runID int64, counts RunCounts, runErr error) error

	// ListSyncRuns returns recent runs, newest first
	ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a run by ID
	GetSyncRun(ctx context.Context, runID int64) (*SyncRun, error)
}

// APICallRepository handles the remote write audit trail
type APICallRepository interface {
	LogAPICall(ctx context.Context, call *APICall) error
	GetAPICallsByChargeID(ctx context.Context, chargeID string) ([]APICall, error)
	GetAPICallsByRunID(ctx context.Context, runID int64) ([]APICall, error)
}
