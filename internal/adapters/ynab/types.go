package ynab

import (
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

type transactionsResponse struct {
	Data struct {
		Transactions    []transaction `json:"transactions"`
		ServerKnowledge int64         `json:"server_knowledge"`
	} `json:"data"`
}

type transaction struct {
	ID              string           `json:"id"`
	Date            string           `json:"date"`
	Amount          int64            `json:"amount"`
	Memo            *string          `json:"memo"`
	Approved        bool             `json:"approved"`
	PayeeName       *string          `json:"payee_name"`
	CategoryID      *string          `json:"category_id"`
	Deleted         bool             `json:"deleted"`
	Subtransactions []subtransaction `json:"subtransactions"`
}

type subtransaction struct {
	ID         string `json:"id,omitempty"`
	Amount     int64  `json:"amount"`
	Memo       string `json:"memo,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
}

type saveTransaction struct {
	CategoryID      *string          `json:"category_id,omitempty"`
	Subtransactions []subtransaction `json:"subtransactions,omitempty"`
}

type categoriesResponse struct {
	Data struct {
		CategoryGroups []struct {
			Name       string `json:"name"`
			Hidden     bool   `json:"hidden"`
			Deleted    bool   `json:"deleted"`
			Categories []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Hidden  bool   `json:"hidden"`
				Deleted bool   `json:"deleted"`
			} `json:"categories"`
		} `json:"category_groups"`
	} `json:"data"`
}

func (t transaction) toCharge() (model.Charge, error) {
	amount, err := money.FromMilliunits(t.Amount)
	if err != nil {
		return model.Charge{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	date, err := time.Parse(model.DateLayout, t.Date)
	if err != nil {
		return model.Charge{}, fmt.Errorf("transaction %s: bad date %q: %w", t.ID, t.Date, err)
	}

	c := model.Charge{
		ID:       t.ID,
		Amount:   amount,
		Date:     date,
		Approved: t.Approved,
	}
	if t.PayeeName != nil {
		c.Payee = *t.PayeeName
	}
	if t.Memo != nil {
		c.Memo = *t.Memo
	}

	var splits []model.Split
	for _, s := range t.Subtransactions {
		if s.Deleted {
			continue
		}
		a, err := money.FromMilliunits(s.Amount)
		if err != nil {
			return model.Charge{}, fmt.Errorf("transaction %s split %s: %w", t.ID, s.ID, err)
		}
		splits = append(splits, model.Split{ID: s.ID, Amount: a, CategoryID: s.CategoryID, Memo: s.Memo})
	}

	// Split transactions carry a placeholder category on the parent
	if len(splits) > 0 {
		c.Splits = splits
	} else if t.CategoryID != nil {
		c.CategoryID = *t.CategoryID
	}
	return c, nil
}
