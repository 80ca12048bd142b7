package dto

import "time"

// Amounts in responses are decimal strings in major units, e.g. "-45.67".
// Dates are YYYY-MM-DD; timestamps are RFC 3339.

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ChargeResponse represents a ledger charge in API responses.
type ChargeResponse struct {
	ID               string          `json:"id"`
	Payee            string          `json:"payee"`
	Memo             string          `json:"memo,omitempty"`
	Amount           string          `json:"amount"`
	Date             string          `json:"date"`
	Approved         bool            `json:"approved"`
	CategoryID       string          `json:"category_id,omitempty"`
	RemoteCategoryID string          `json:"remote_category_id,omitempty"`
	Status           string          `json:"status"`
	Conflict         bool            `json:"conflict,omitempty"`
	ModifiedAt       string          `json:"modified_at"`
	Splits           []SplitResponse `json:"splits,omitempty"`
	Match            *MatchResponse  `json:"match,omitempty"`
}

// SplitResponse represents one split of a charge.
type SplitResponse struct {
	ID         string `json:"id"`
	Amount     string `json:"amount"`
	CategoryID string `json:"category_id"`
	Memo       string `json:"memo,omitempty"`
}

// ChargeListResponse is returned when listing charges.
type ChargeListResponse struct {
	Charges []ChargeResponse `json:"charges"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// OrderResponse represents a cached order.
type OrderResponse struct {
	ID        string         `json:"id"`
	Date      string         `json:"date"`
	Total     string         `json:"total"`
	FetchedAt string         `json:"fetched_at"`
	Items     []ItemResponse `json:"items"`
}

// ItemResponse represents one line of an order.
type ItemResponse struct {
	Description string `json:"description"`
	UnitAmount  string `json:"unit_amount"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

// OrderListResponse is returned when listing orders.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Count  int             `json:"count"`
}

// MatchResponse represents a charge-to-order link.
type MatchResponse struct {
	ChargeID           string `json:"charge_id"`
	OrderID            string `json:"order_id"`
	Tier               string `json:"tier"`
	DuplicateCandidate bool   `json:"duplicate_candidate"`
	MatchedAt          string `json:"matched_at"`
}

// MatchListResponse is returned when listing links.
type MatchListResponse struct {
	Matches    []MatchResponse `json:"matches"`
	Count      int             `json:"count"`
	Duplicates int             `json:"duplicates"`
}

// SuggestionResponse is one learned category.
type SuggestionResponse struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Count        int    `json:"count"`
	LastUsed     string `json:"last_used"`
	Fuzzy        bool   `json:"fuzzy,omitempty"`
	MatchedKey   string `json:"matched_key,omitempty"`
}

// ItemSuggestionResponse pairs an order item with its learned categories.
type ItemSuggestionResponse struct {
	Index       int                  `json:"index"`
	Item        ItemResponse         `json:"item"`
	Suggestions []SuggestionResponse `json:"suggestions"`
}

// ChargeSuggestionsResponse is returned by GET /api/charges/{id}/suggestions.
type ChargeSuggestionsResponse struct {
	Charge ChargeResponse           `json:"charge"`
	Payee  []SuggestionResponse     `json:"payee"`
	Order  *OrderResponse           `json:"order,omitempty"`
	Items  []ItemSuggestionResponse `json:"items,omitempty"`
}

// StageResponse is returned when staging charges for push.
type StageResponse struct {
	Requested int `json:"requested"`
	Staged    int `json:"staged"`
}

// DiscardResponse is returned when discarding local decisions.
type DiscardResponse struct {
	Requested int `json:"requested"`
	Discarded int `json:"discarded"`
}

// RequeueResponse is returned when requeueing conflicted charges.
type RequeueResponse struct {
	Requested int `json:"requested"`
	Requeued  int `json:"requeued"`
}

// PushDiffResponse is the change a push would make to one charge.
type PushDiffResponse struct {
	ChargeID string `json:"charge_id"`
	Payee    string `json:"payee"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// PushPreviewResponse is returned by the push preview endpoint.
type PushPreviewResponse struct {
	Pending int                `json:"pending"`
	Diffs   []PushDiffResponse `json:"diffs"`
}

// SyncRunResponse represents a sync run in API responses.
type SyncRunResponse struct {
	ID             int64  `json:"id"`
	UUID           string `json:"uuid"`
	Operation      string `json:"operation"`
	Mode           string `json:"mode,omitempty"`
	Scope          string `json:"scope,omitempty"`
	DryRun         bool   `json:"dry_run"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	Status         string `json:"status"`
	RecordsFetched int    `json:"records_fetched"`
	RecordsWritten int    `json:"records_written"`
	RecordsFailed  int    `json:"records_failed"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// APICallResponse is one audited remote write.
type APICallResponse struct {
	ID          int64  `json:"id"`
	RunID       int64  `json:"run_id,omitempty"`
	ChargeID    string `json:"charge_id"`
	Method      string `json:"method"`
	RequestJSON string `json:"request_json"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	CalledAt    string `json:"called_at"`
}

// APICallListResponse is returned when listing the writes of a run.
type APICallListResponse struct {
	Calls []APICallResponse `json:"calls"`
	Count int               `json:"count"`
}

// CategoryResponse represents a ledger category.
type CategoryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group,omitempty"`
	Hidden bool   `json:"hidden"`
}

// CategoryListResponse is returned when listing categories.
type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
	Count      int                `json:"count"`
}

// StatsResponse is a snapshot of store contents.
type StatsResponse struct {
	Charges         int            `json:"charges"`
	ByStatus        map[string]int `json:"by_status"`
	Uncategorized   int            `json:"uncategorized"`
	Conflicts       int            `json:"conflicts"`
	Orders          int            `json:"orders"`
	Links           int            `json:"links"`
	StrictLinks     int            `json:"strict_links"`
	ExtendedLinks   int            `json:"extended_links"`
	DuplicateLinks  int            `json:"duplicate_links"`
	Categorizations int            `json:"categorizations"`
	Categories      int            `json:"categories"`
	LedgerLastSync  string         `json:"ledger_last_sync,omitempty"`
	OrdersLastSync  string         `json:"orders_last_sync,omitempty"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
