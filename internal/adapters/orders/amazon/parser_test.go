package amazon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected money.Amount
		wantErr  bool
	}{
		{name: "simple amount", input: "$116.20", expected: 11620},
		{name: "amount with comma", input: "$1,234.56", expected: 123456},
		{name: "negative amount", input: "-$50.00", expected: -5000},
		{name: "zero", input: "$0.00", expected: 0},
		{name: "empty string", input: "", expected: 0},
		{name: "with whitespace", input: "  $99.99  ", expected: 9999},
		{name: "sub-cent precision", input: "$1.005", wantErr: true},
		{name: "invalid", input: "not a number", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "ISO 8601", input: "2025-12-13", expected: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)},
		{name: "RFC3339 keeps the calendar day", input: "2025-12-13T18:30:00-05:00", expected: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)},
		{name: "US format", input: "December 13, 2025", expected: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)},
		{name: "empty string", input: "", wantErr: true},
		{name: "invalid format", input: "13/12/2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseCLIOutput(t *testing.T) {
	jsonData := []byte(`{
		"orders": [
			{
				"orderId": "114-9989668-3824210",
				"orderDate": "2025-12-13",
				"total": "$116.20",
				"items": [
					{ "name": "SUPFINE Magnetic iPhone Case", "price": "$14.99", "quantity": 1 },
					{ "name": "Phone Tripod", "price": "$25.64", "quantity": 1 }
				]
			}
		]
	}`)

	output, err := ParseCLIOutput(jsonData)
	require.NoError(t, err)
	require.Len(t, output.Orders, 1)

	order := output.Orders[0]
	assert.Equal(t, "114-9989668-3824210", order.OrderID)
	assert.Equal(t, "$116.20", order.Total)
	assert.Len(t, order.Items, 2)

	_, err = ParseCLIOutput([]byte(`not valid json`))
	assert.Error(t, err)
}

func TestConvertCLIOrder(t *testing.T) {
	cliOrder := CLIOrder{
		OrderID:   "114-9989668-3824210",
		OrderDate: "2025-12-13",
		Total:     "$116.20",
		Items: []CLIOrderItem{
			{Name: "SUPFINE Magnetic iPhone Case", Price: "$14.99", Quantity: 1},
			{Name: "Phone Tripod", Price: "$51.28", Quantity: 2},
			{Name: "Batteries", Price: "$10.00", Quantity: 3},
			{Name: "Test Item", Price: "$5.00", Quantity: 0},
		},
	}

	order, err := ConvertCLIOrder(cliOrder)
	require.NoError(t, err)

	assert.Equal(t, "114-9989668-3824210", order.ID)
	assert.Equal(t, time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC), order.Date)
	assert.Equal(t, money.Amount(11620), order.Total)

	require.Len(t, order.Items, 4)
	assert.Equal(t, money.Amount(1499), order.Items[0].UnitAmount)
	assert.Equal(t, money.Amount(2564), order.Items[1].UnitAmount)
	assert.Equal(t, 2, order.Items[1].Quantity)
	assert.Equal(t, money.Amount(5128), order.Items[1].LineTotal())

	// 10.00 / 3 is not a whole cent: kept as one line
	assert.Equal(t, "Batteries (x3)", order.Items[2].Description)
	assert.Equal(t, money.Amount(1000), order.Items[2].LineTotal())

	// Quantity 0 defaults to 1
	assert.Equal(t, 1, order.Items[3].Quantity)
}

func TestConvertCLIOrder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		order   CLIOrder
		wantMsg string
	}{
		{
			name:    "invalid date",
			order:   CLIOrder{OrderID: "114-0", OrderDate: "invalid-date", Total: "$50.00"},
			wantMsg: "parse order date",
		},
		{
			name:    "invalid total",
			order:   CLIOrder{OrderID: "114-0", OrderDate: "2025-12-13", Total: "not-a-number"},
			wantMsg: "parse total",
		},
		{
			name: "invalid item price",
			order: CLIOrder{OrderID: "114-0", OrderDate: "2025-12-13", Total: "$50.00", Items: []CLIOrderItem{
				{Name: "Bad Item", Price: "invalid", Quantity: 1},
			}},
			wantMsg: "Bad Item",
		},
		{
			name:    "missing id",
			order:   CLIOrder{OrderDate: "2025-12-13", Total: "$50.00"},
			wantMsg: "no id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConvertCLIOrder(tt.order)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
