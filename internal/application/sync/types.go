package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// ErrUpstream wraps every failure reported by the ledger or the order source.
// Such failures leave the store untouched and are safe to retry.
var ErrUpstream = errors.New("upstream unavailable")

// DefaultOverlapDays is the look-back an incremental pull re-requests.
const DefaultOverlapDays = 7

// Mode selects how much history a pull requests
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeFull        Mode = "full"
)

// Sources a pull may be limited to
const (
	SourceAll    = "all"
	SourceLedger = "ledger"
	SourceOrders = "orders"
)

// Scope limits a pull to one source, or the order source to one year
type Scope struct {
	Source string
	Year   int
}

// String renders the scope for run records
func (s Scope) String() string {
	src := s.Source
	if src == "" {
		src = SourceAll
	}
	if s.Year != 0 {
		return fmt.Sprintf("%s:%d", src, s.Year)
	}
	return src
}

func (s Scope) includesLedger() bool {
	return s.Year == 0 && (s.Source == "" || s.Source == SourceAll || s.Source == SourceLedger)
}

func (s Scope) includesOrders() bool {
	return s.Source == "" || s.Source == SourceAll || s.Source == SourceOrders
}

func (s Scope) validate() error {
	switch s.Source {
	case "", SourceAll, SourceLedger, SourceOrders:
	default:
		return fmt.Errorf("unknown pull source %q", s.Source)
	}
	if s.Year != 0 && s.Source == SourceLedger {
		return fmt.Errorf("a year scope applies to the order source only")
	}
	if s.Year < 0 {
		return fmt.Errorf("invalid year %d", s.Year)
	}
	return nil
}

// Config holds sync engine settings
type Config struct {
	OverlapDays       int
	EarliestOrderYear int
	FetchConcurrency  int
}

// DefaultConfig returns the standard engine settings
func DefaultConfig() Config {
	return Config{
		OverlapDays:      DefaultOverlapDays,
		FetchConcurrency: 2,
	}
}

// PullOptions holds pull configuration
type PullOptions struct {
	Mode  Mode
	Scope Scope
}

// SourceResult describes the pull of one source
type SourceResult struct {
	Since      *time.Time `json:"since,omitempty"`
	Years      []int      `json:"years,omitempty"`
	Fetched    int        `json:"fetched"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Checkpoint *time.Time `json:"checkpoint,omitempty"`
}

// PullResult holds pull results
type PullResult struct {
	RunID        int64         `json:"run_id"`
	Ledger       *SourceResult `json:"ledger,omitempty"`
	Orders       *SourceResult `json:"orders,omitempty"`
	Categories   int           `json:"categories"`
	History      int           `json:"history_appended"`
	Inconsistent []string      `json:"inconsistent,omitempty"`
	Conflicts    []string      `json:"conflicts,omitempty"`
}

// PushOptions holds push configuration
type PushOptions struct {
	DryRun bool
}

// PushFailure is one charge that could not be pushed
type PushFailure struct {
	ChargeID string `json:"charge_id"`
	Reason   string `json:"reason"`
}

// PushDiff is the change a push would write for one charge
type PushDiff struct {
	ChargeID string       `json:"charge_id"`
	Payee    string       `json:"payee"`
	Date     time.Time    `json:"date"`
	Amount   money.Amount `json:"amount"`
	From     string       `json:"from"`
	To       string       `json:"to"`
}

// PushResult holds push results
type PushResult struct {
	RunID    int64         `json:"run_id"`
	DryRun   bool          `json:"dry_run"`
	Pending  int           `json:"pending"`
	Pushed   int           `json:"pushed"`
	Skipped  int           `json:"skipped"`
	Failures []PushFailure `json:"failures"`
	Diffs    []PushDiff    `json:"diffs,omitempty"`
}

// Failed returns the number of charges that failed to push
func (r *PushResult) Failed() int {
	return len(r.Failures)
}

// ReconcileResult holds the pull and match of one reconcile run
type ReconcileResult struct {
	RunID int64           `json:"run_id"`
	Pull  *PullResult     `json:"pull"`
	Match *matcher.Result `json:"match,omitempty"`
}
