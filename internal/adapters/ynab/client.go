// Package ynab is a ledger.Client for the YNAB REST API.
//
// YNAB amounts are milliunits; they are converted to store minor units here
// and nowhere else. Transient failures (429, 5xx, connection errors) are
// retried by go-retryablehttp.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.ynab.com/v1"

// Config configures the client.
type Config struct {
	BaseURL  string
	BudgetID string
	Token    string
	RetryMax int
	Timeout  time.Duration
}

// Client talks to one YNAB budget.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	budgetID string
	token    string
	logger   *slog.Logger
}

var _ ledger.Client = (*Client)(nil)

// APIError is a non-2xx response.
type APIError struct {
	Status int
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ynab: %d %s: %s", e.Status, e.Name, e.Detail)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// NewClient creates a client. The token is sent as a bearer token.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BudgetID == "" {
		return nil, fmt.Errorf("ynab: budget id is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("ynab: token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = logger
	httpClient.RetryMax = cfg.RetryMax
	if cfg.RetryMax == 0 {
		httpClient.RetryMax = 3
	}
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	// Hand the last response back so API errors keep their status
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		http:     httpClient,
		baseURL:  baseURL,
		budgetID: cfg.BudgetID,
		token:    cfg.Token,
		logger:   logger.With(slog.String("ledger", "ynab")),
	}, nil
}

// ListTransactions returns the transactions changed since req.Since.
// YNAB does not page; the server knowledge is returned as the cursor.
// The cursor is only sent without a date, since YNAB would otherwise drop
// everything older than the cursor from the dated listing.
func (c *Client) ListTransactions(ctx context.Context, req ledger.ListRequest) (*ledger.Page, error) {
	q := url.Values{}
	switch {
	case req.Since != nil:
		q.Set("since_date", req.Since.Format(model.DateLayout))
	case req.Cursor != "":
		q.Set("last_knowledge_of_server", req.Cursor)
	}

	var resp transactionsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("transactions"), q, nil, &resp); err != nil {
		return nil, err
	}

	page := &ledger.Page{Cursor: strconv.FormatInt(resp.Data.ServerKnowledge, 10)}
	for _, t := range resp.Data.Transactions {
		if t.Deleted {
			continue
		}
		charge, err := t.toCharge()
		if err != nil {
			return nil, err
		}
		page.Charges = append(page.Charges, charge)
	}

	c.logger.Debug("listed transactions", slog.Int("count", len(page.Charges)), slog.String("cursor", page.Cursor))
	return page, nil
}

// ListCategories returns every category of the budget, flattened.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp categoriesResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("categories"), nil, nil, &resp); err != nil {
		return nil, err
	}

	var cats []model.Category
	for _, g := range resp.Data.CategoryGroups {
		for _, cat := range g.Categories {
			cats = append(cats, model.Category{
				ID:      cat.ID,
				Name:    cat.Name,
				Group:   g.Name,
				Hidden:  cat.Hidden || g.Hidden,
				Deleted: cat.Deleted || g.Deleted,
			})
		}
	}
	return cats, nil
}

// UpdateTransactionCategory writes a category or a split list to a transaction.
func (c *Client) UpdateTransactionCategory(ctx context.Context, chargeID string, update ledger.CategoryUpdate) error {
	body := saveTransaction{}
	if len(update.Splits) > 0 {
		for _, s := range update.Splits {
			body.Subtransactions = append(body.Subtransactions, subtransaction{
				Amount:     s.Amount.Milliunits(),
				CategoryID: s.CategoryID,
				Memo:       s.Memo,
			})
		}
	} else {
		categoryID := update.CategoryID
		body.CategoryID = &categoryID
	}

	payload := map[string]saveTransaction{"transaction": body}
	return c.do(ctx, http.MethodPut, c.budgetPath("transactions/"+url.PathEscape(chargeID)), nil, payload, nil)
}

func (c *Client) budgetPath(suffix string) string {
	return "/budgets/" + url.PathEscape(c.budgetID) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ynab: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("ynab: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ynab: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ynab: decode response: %w", err)
	}
	return nil
}
