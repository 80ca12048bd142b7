package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

func sumAllocations(r *Result) money.Amount {
	var total money.Amount
	for _, a := range r.Allocations {
		total += a.AllocatedCost
	}
	return total
}

func TestAllocate_ExactItems(t *testing.T) {
	// Items already sum to the charge
	items := []Item{
		{Name: "Clean Code", ListPrice: 2999},
		{Name: "USB Cable", ListPrice: 1568},
	}

	result, err := Allocate(items, -4567)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(-2999), result.Allocations[0].AllocatedCost)
	assert.Equal(t, money.Amount(-1568), result.Allocations[1].AllocatedCost)
	assert.Equal(t, money.Amount(-4567), sumAllocations(result))
}

func TestAllocate_BasicProRata(t *testing.T) {
	// 3 items totaling $100, charge $95 (5% discount)
	items := []Item{
		{Name: "Widget A", ListPrice: 5000},
		{Name: "Widget B", ListPrice: 3000},
		{Name: "Widget C", ListPrice: 2000},
	}

	result, err := Allocate(items, 9500)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(4750), result.Allocations[0].AllocatedCost)
	assert.Equal(t, money.Amount(2850), result.Allocations[1].AllocatedCost)
	assert.Equal(t, money.Amount(1900), result.Allocations[2].AllocatedCost)
	assert.Equal(t, money.Amount(9500), result.TotalAllocated)
}

func TestAllocate_RemainderAlwaysSumsExactly(t *testing.T) {
	// Three equal items over 100 cents leaves one unit of remainder
	items := []Item{
		{Name: "A", ListPrice: 333},
		{Name: "B", ListPrice: 333},
		{Name: "C", ListPrice: 333},
	}

	result, err := Allocate(items, 100)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(100), sumAllocations(result))
	assert.Equal(t, money.Amount(34), result.Allocations[0].AllocatedCost, "first item takes the leftover unit")
	assert.Equal(t, money.Amount(33), result.Allocations[1].AllocatedCost)
	assert.Equal(t, money.Amount(33), result.Allocations[2].AllocatedCost)
}

func TestAllocate_RealAmazonOrder(t *testing.T) {
	// Items sum to $107.26, bank charges sum to $103.27
	items := []Item{
		{Name: "Hot Wheels", ListPrice: 1999},
		{Name: "Item 2", ListPrice: 1272},
		{Name: "Item 3", ListPrice: 1699},
		{Name: "Item 4", ListPrice: 799},
		{Name: "Peppa Pig", ListPrice: 649},
		{Name: "Paw Patrol Stickers", ListPrice: 2699},
		{Name: "Paw Patrol Racers", ListPrice: 1609},
	}

	result, err := Allocate(items, -10327)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(-10327), sumAllocations(result))
	for _, a := range result.Allocations {
		assert.LessOrEqual(t, int64(a.AllocatedCost), int64(0), "sign follows the charge")
	}
}

func TestAllocate_FreeItems(t *testing.T) {
	items := []Item{{Name: "Free A"}, {Name: "Free B"}}

	result, err := Allocate(items, 500)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(500), sumAllocations(result))
}

func TestAllocate_Errors(t *testing.T) {
	_, err := Allocate(nil, 100)
	assert.Error(t, err)

	_, err = Allocate([]Item{{Name: "bad", ListPrice: -1}}, 100)
	assert.Error(t, err)
}
