package amazon

// CLIOutput represents the JSON output from the amazon-order-scraper CLI
type CLIOutput struct {
	Orders []CLIOrder `json:"orders"`
}

// CLIOrder represents an order from the CLI output
type CLIOrder struct {
	OrderID   string         `json:"orderId"`
	OrderDate string         `json:"orderDate"` // ISO 8601: "2025-12-13"
	Total     string         `json:"total"`     // "$116.20"
	Items     []CLIOrderItem `json:"items"`
}

// CLIOrderItem represents an item from the CLI output.
// Price is the line total for the quantity.
type CLIOrderItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`    // "$14.99"
	Quantity int    `json:"quantity"` // numeric
}
