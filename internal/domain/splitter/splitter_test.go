package splitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

func amazonCharge(amount money.Amount) model.Charge {
	return model.Charge{
		ID:     "t1",
		Payee:  "AMAZON.COM",
		Amount: amount,
		Date:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateSplits_Scenario_TwoItems(t *testing.T) {
	// Arrange
	items := []ItemCategory{
		{Item: model.OrderItem{Description: "Clean Code", UnitAmount: 2999, Quantity: 1}, CategoryID: "books", CategoryName: "Books"},
		{Item: model.OrderItem{Description: "USB Cable", UnitAmount: 1568, Quantity: 1}, CategoryID: "electronics", CategoryName: "Electronics"},
	}

	// Act
	plan, err := CreateSplits(amazonCharge(-4567), items)

	// Assert
	require.NoError(t, err)
	require.True(t, plan.IsSplit())
	require.Len(t, plan.Splits, 2)
	assert.Equal(t, money.Amount(-2999), plan.Splits[0].Amount)
	assert.Equal(t, money.Amount(-1568), plan.Splits[1].Amount)
	assert.Equal(t, money.Amount(-4567), plan.Splits[0].Amount+plan.Splits[1].Amount)
	assert.Equal(t, "Books: Clean Code", plan.Splits[0].Memo)
	assert.NotEmpty(t, plan.Splits[0].ID)
	assert.NotEqual(t, plan.Splits[0].ID, plan.Splits[1].ID)
}

func TestCreateSplits_PositiveMagnitudeCharge(t *testing.T) {
	items := []ItemCategory{
		{Item: model.OrderItem{Description: "Clean Code", UnitAmount: 2999, Quantity: 1}, CategoryID: "books"},
		{Item: model.OrderItem{Description: "USB Cable", UnitAmount: 1568, Quantity: 1}, CategoryID: "electronics"},
	}

	plan, err := CreateSplits(amazonCharge(4567), items)

	require.NoError(t, err)
	assert.Equal(t, money.Amount(4567), plan.Splits[0].Amount+plan.Splits[1].Amount)
}

func TestCreateSplits_DiscountedOrderSumsExactly(t *testing.T) {
	// Charge is lower than the item list because of a coupon
	items := []ItemCategory{
		{Item: model.OrderItem{Description: "Shampoo", UnitAmount: 899, Quantity: 1}, CategoryID: "personal"},
		{Item: model.OrderItem{Description: "Milk", UnitAmount: 399, Quantity: 2}, CategoryID: "groceries"},
		{Item: model.OrderItem{Description: "Bread", UnitAmount: 250, Quantity: 1}, CategoryID: "groceries"},
	}

	plan, err := CreateSplits(amazonCharge(-1777), items)

	require.NoError(t, err)
	require.Len(t, plan.Splits, 2)
	assert.Equal(t, "personal", plan.Splits[0].CategoryID)
	assert.Equal(t, "groceries", plan.Splits[1].CategoryID)
	assert.Equal(t, money.Amount(-1777), plan.Splits[0].Amount+plan.Splits[1].Amount)
	assert.Equal(t, "Milk (x2), Bread", plan.Splits[1].Memo)
}

func TestCreateSplits_SingleCategory(t *testing.T) {
	items := []ItemCategory{
		{Item: model.OrderItem{Description: "Milk", UnitAmount: 399, Quantity: 1}, CategoryID: "groceries", CategoryName: "Groceries"},
		{Item: model.OrderItem{Description: "Bread", UnitAmount: 250, Quantity: 1}, CategoryID: "groceries", CategoryName: "Groceries"},
	}

	plan, err := CreateSplits(amazonCharge(-649), items)

	require.NoError(t, err)
	assert.False(t, plan.IsSplit())
	assert.Equal(t, "groceries", plan.CategoryID)
	assert.Equal(t, "Groceries: Milk, Bread", plan.Memo)
}

func TestCreateSplits_ManyItemsNote(t *testing.T) {
	var items []ItemCategory
	for _, d := range []string{"A", "B", "C", "D"} {
		items = append(items, ItemCategory{Item: model.OrderItem{Description: d, UnitAmount: 100, Quantity: 1}, CategoryID: "x"})
	}
	items = append(items, ItemCategory{Item: model.OrderItem{Description: "E", UnitAmount: 100, Quantity: 1}, CategoryID: "y"})

	plan, err := CreateSplits(amazonCharge(-500), items)

	require.NoError(t, err)
	assert.Equal(t, "(4 items) A, B, C, D", plan.Splits[0].Memo)
}

func TestCreateSplits_Errors(t *testing.T) {
	_, err := CreateSplits(amazonCharge(-100), nil)
	assert.Error(t, err)

	_, err = CreateSplits(amazonCharge(0), []ItemCategory{{Item: model.OrderItem{Description: "x"}, CategoryID: "a"}})
	assert.Error(t, err)

	_, err = CreateSplits(amazonCharge(-100), []ItemCategory{{Item: model.OrderItem{Description: "x", UnitAmount: 100}}})
	assert.Error(t, err)
}
