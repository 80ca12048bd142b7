// Package fixture is an offline ledger and order source backed by a YAML file.
//
// It is deterministic, records every write it receives and can be told to
// fail, which makes it the stand-in for both upstreams in tests and dry runs.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/orders"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// ErrUnavailable is the default injected failure.
var ErrUnavailable = errors.New("fixture: upstream unavailable")

// File is the YAML layout of a fixture.
type File struct {
	Categories   []Category    `yaml:"categories"`
	Transactions []Transaction `yaml:"transactions"`
	Orders       []Order       `yaml:"orders"`
}

// Category is a ledger category entry.
type Category struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Group  string `yaml:"group"`
	Hidden bool   `yaml:"hidden"`
}

// Transaction is a ledger charge entry. Amounts are major-unit decimal strings.
type Transaction struct {
	ID         string  `yaml:"id"`
	Payee      string  `yaml:"payee"`
	Memo       string  `yaml:"memo"`
	Amount     string  `yaml:"amount"`
	Date       string  `yaml:"date"`
	Approved   bool    `yaml:"approved"`
	CategoryID string  `yaml:"category_id"`
	Splits     []Split `yaml:"splits"`
	// UpdatedAt drives incremental listing; the charge date is used when empty.
	UpdatedAt string `yaml:"updated_at"`
}

// Split is a ledger split entry.
type Split struct {
	ID         string `yaml:"id"`
	Amount     string `yaml:"amount"`
	CategoryID string `yaml:"category_id"`
	Memo       string `yaml:"memo"`
}

// Order is an order-history entry.
type Order struct {
	ID    string `yaml:"id"`
	Date  string `yaml:"date"`
	Total string `yaml:"total"`
	Items []Item `yaml:"items"`
}

// Item is one order line.
type Item struct {
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Quantity    int    `yaml:"quantity"`
}

// Update is a recorded UpdateTransactionCategory call.
type Update struct {
	ChargeID string
	Update   ledger.CategoryUpdate
}

type entry struct {
	charge    model.Charge
	updatedAt time.Time
}

// Fixture implements ledger.Client and orders.Source.
type Fixture struct {
	mu         sync.Mutex
	categories []model.Category
	entries    []entry
	orders     []model.Order
	version    int

	// PageSize splits transaction listings into pages; 0 means one page.
	PageSize int

	// Injected failures.
	FailList       error
	FailCategories error
	FailUpdate     map[string]error
	FailYear       map[int]error

	requests []ledger.ListRequest
	updates  []Update
	years    []int
}

var (
	_ ledger.Client = (*Fixture)(nil)
	_ orders.Source = (*Fixture)(nil)
)

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return New(f)
}

// New builds a fixture from its decoded form.
func New(f File) (*Fixture, error) {
	fx := &Fixture{
		FailUpdate: make(map[string]error),
		FailYear:   make(map[int]error),
	}

	for _, c := range f.Categories {
		fx.categories = append(fx.categories, model.Category{ID: c.ID, Name: c.Name, Group: c.Group, Hidden: c.Hidden})
	}

	for _, t := range f.Transactions {
		e, err := t.toEntry()
		if err != nil {
			return nil, err
		}
		fx.entries = append(fx.entries, e)
	}

	for _, o := range f.Orders {
		order, err := o.toOrder()
		if err != nil {
			return nil, err
		}
		fx.orders = append(fx.orders, order)
	}

	return fx, nil
}

// ListTransactions returns charges updated on or after req.Since, in ID order.
func (f *Fixture) ListTransactions(ctx context.Context, req ledger.ListRequest) (*ledger.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.FailList != nil {
		return nil, f.FailList
	}

	var matching []model.Charge
	for _, e := range f.entries {
		if req.Since != nil && e.updatedAt.Before(*req.Since) {
			continue
		}
		matching = append(matching, cloneCharge(e.charge))
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })

	start := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil || n < 0 || n > len(matching) {
			return nil, fmt.Errorf("fixture: bad page token %q", req.PageToken)
		}
		start = n
	}
	end := len(matching)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	page := &ledger.Page{
		Charges: matching[start:end],
		Cursor:  fmt.Sprintf("fixture-%d", f.version),
	}
	if end < len(matching) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// ListCategories returns the fixture categories.
func (f *Fixture) ListCategories(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCategories != nil {
		return nil, f.FailCategories
	}
	return append([]model.Category(nil), f.categories...), nil
}

// UpdateTransactionCategory records the write and applies it to the fixture.
func (f *Fixture) UpdateTransactionCategory(ctx context.Context, chargeID string, update ledger.CategoryUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FailUpdate[chargeID]; err != nil {
		return err
	}

	for i := range f.entries {
		if f.entries[i].charge.ID != chargeID {
			continue
		}
		f.entries[i].charge.CategoryID = update.CategoryID
		f.entries[i].charge.Splits = append([]model.Split(nil), update.Splits...)
		f.version++
		f.updates = append(f.updates, Update{ChargeID: chargeID, Update: update})
		return nil
	}
	return fmt.Errorf("fixture: transaction %s: %w", chargeID, model.ErrNotFound)
}

// ListOrders returns orders placed in year, or every order when year is 0.
func (f *Fixture) ListOrders(ctx context.Context, year int) ([]model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.years = append(f.years, year)
	if err := f.FailYear[year]; err != nil {
		return nil, err
	}

	var out []model.Order
	for _, o := range f.orders {
		if year == 0 || o.Date.Year() == year {
			out = append(out, o)
		}
	}
	return out, nil
}

// AddTransaction appends or replaces a charge, as if it changed upstream at updatedAt.
func (f *Fixture) AddTransaction(c model.Charge, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	for i := range f.entries {
		if f.entries[i].charge.ID == c.ID {
			f.entries[i] = entry{charge: cloneCharge(c), updatedAt: updatedAt}
			return
		}
	}
	f.entries = append(f.entries, entry{charge: cloneCharge(c), updatedAt: updatedAt})
}

// Requests returns the recorded ListTransactions requests.
func (f *Fixture) Requests() []ledger.ListRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.ListRequest(nil), f.requests...)
}

// Updates returns the recorded category writes.
func (f *Fixture) Updates() []Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Update(nil), f.updates...)
}

// Years returns the recorded ListOrders years.
func (f *Fixture) Years() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.years...)
}

func (t Transaction) toEntry() (entry, error) {
	amount, err := money.Parse(t.Amount)
	if err != nil {
		return entry{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	date, err := time.Parse(model.DateLayout, t.Date)
	if err != nil {
		return entry{}, fmt.Errorf("transaction %s: bad date: %w", t.ID, err)
	}

	c := model.Charge{
		ID:         t.ID,
		Payee:      t.Payee,
		Memo:       t.Memo,
		Amount:     amount,
		Date:       date,
		Approved:   t.Approved,
		CategoryID: t.CategoryID,
	}
	for _, s := range t.Splits {
		a, err := money.Parse(s.Amount)
		if err != nil {
			return entry{}, fmt.Errorf("transaction %s split: %w", t.ID, err)
		}
		c.Splits = append(c.Splits, model.Split{ID: s.ID, Amount: a, CategoryID: s.CategoryID, Memo: s.Memo})
	}

	updatedAt := date
	if t.UpdatedAt != "" {
		if updatedAt, err = time.Parse(time.RFC3339, t.UpdatedAt); err != nil {
			return entry{}, fmt.Errorf("transaction %s: bad updated_at: %w", t.ID, err)
		}
	}
	return entry{charge: c, updatedAt: updatedAt}, nil
}

func (o Order) toOrder() (model.Order, error) {
	total, err := money.Parse(o.Total)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	date, err := time.Parse(model.DateLayout, o.Date)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: bad date: %w", o.ID, err)
	}

	order := model.Order{ID: o.ID, Date: date, Total: total}
	for _, it := range o.Items {
		a, err := money.Parse(it.Amount)
		if err != nil {
			return model.Order{}, fmt.Errorf("order %s item %q: %w", o.ID, it.Description, err)
		}
		order.Items = append(order.Items, model.OrderItem{Description: it.Description, UnitAmount: a, Quantity: it.Quantity})
	}
	return order, nil
}

func cloneCharge(c model.Charge) model.Charge {
	c.Splits = append([]model.Split(nil), c.Splits...)
	return c
}
