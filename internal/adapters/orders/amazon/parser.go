package amazon

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// ParseCLIOutput parses the JSON output from amazon-order-scraper
func ParseCLIOutput(data []byte) (*CLIOutput, error) {
	var output CLIOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to decode CLI output: %w", err)
	}
	return &output, nil
}

// ConvertCLIOrder converts a CLIOrder to a store order.
// Any unparseable field fails the whole order to avoid silent data loss.
func ConvertCLIOrder(cliOrder CLIOrder) (model.Order, error) {
	order := model.Order{ID: cliOrder.OrderID}
	if order.ID == "" {
		return order, fmt.Errorf("order has no id")
	}

	date, err := parseDate(cliOrder.OrderDate)
	if err != nil {
		return order, fmt.Errorf("failed to parse order date %q: %w", cliOrder.OrderDate, err)
	}
	order.Date = date

	order.Total, err = parseAmount(cliOrder.Total)
	if err != nil {
		return order, fmt.Errorf("failed to parse total %q: %w", cliOrder.Total, err)
	}

	for i, cliItem := range cliOrder.Items {
		item, err := convertCLIItem(cliItem)
		if err != nil {
			return order, fmt.Errorf("failed to parse item %d (%q): %w", i, cliItem.Name, err)
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}

// convertCLIItem turns a line total into a unit amount. Line totals that do
// not divide evenly by the quantity are kept as one line so no cent is lost.
func convertCLIItem(cliItem CLIOrderItem) (model.OrderItem, error) {
	price, err := parseAmount(cliItem.Price)
	if err != nil {
		return model.OrderItem{}, fmt.Errorf("failed to parse item price %q: %w", cliItem.Price, err)
	}

	quantity := cliItem.Quantity
	if quantity <= 0 {
		quantity = 1 // Default to 1 if not specified
	}

	if int64(price)%int64(quantity) != 0 {
		return model.OrderItem{
			Description: fmt.Sprintf("%s (x%d)", cliItem.Name, quantity),
			UnitAmount:  price,
			Quantity:    1,
		}, nil
	}

	return model.OrderItem{
		Description: cliItem.Name,
		UnitAmount:  money.Amount(int64(price) / int64(quantity)),
		Quantity:    quantity,
	}, nil
}

// parseAmount parses a currency string like "$116.20", "-$50.00" or "$1,234.56"
func parseAmount(s string) (money.Amount, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := money.Parse(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %w", err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// parseDate parses an ISO 8601 date string like "2025-12-13"
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	layouts := []string{model.DateLayout, time.RFC3339, "January 2, 2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}
