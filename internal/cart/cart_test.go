package cart_test

import (
	"math/rand"
	"sync"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price string, stock int) models.Product {
	return models.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestCart_AddItem(t *testing.T) {
	c := cart.New()
	a := product("a", "10.00", 5)

	res, err := c.AddItem(a, 2)
	require.NoError(t, err)
	assert.Equal(t, cart.AddResult{Added: 2, Quantity: 2}, res)

	// Merges into the existing line.
	res, err = c.AddItem(a, 1)
	require.NoError(t, err)
	assert.Equal(t, cart.AddResult{Added: 1, Quantity: 3}, res)
	line, ok := c.Line("a")
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, 1, c.Len())

	// Clamps at stock and reports the shortfall.
	res, err = c.AddItem(a, 10)
	require.NoError(t, err)
	assert.Equal(t, cart.AddResult{Added: 2, Quantity: 5}, res)
	line, _ = c.Line("a")
	assert.Equal(t, 5, line.Quantity)

	res, err = c.AddItem(a, 1)
	require.NoError(t, err)
	assert.Equal(t, cart.AddResult{Added: 0, Quantity: 5}, res)
}

func TestCart_AddItemAfterStockDropped(t *testing.T) {
	c := cart.New()
	_, err := c.AddItem(product("a", "10.00", 5), 5)
	require.NoError(t, err)

	// The product was looked up again with only two left.
	res, err := c.AddItem(product("a", "10.00", 2), 1)
	require.NoError(t, err)
	assert.Equal(t, cart.AddResult{Added: 0, Quantity: 2, Reduced: 3}, res)

	line, ok := c.Line("a")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 2, line.Stock)
	assert.True(t, c.TotalAmount().Equal(decimal.RequireFromString("20.00")))
}

func TestCart_AddItemOutOfStock(t *testing.T) {
	c := cart.New()
	_, err := c.AddItem(product("a", "10.00", 3), 1)
	require.NoError(t, err)
	before := c.Lines()

	_, err = c.AddItem(product("b", "1.00", 0), 1)
	assert.ErrorIs(t, err, cart.ErrOutOfStock)

	// A product that sold out since it was added is refused as well.
	_, err = c.AddItem(product("a", "10.00", 0), 1)
	assert.ErrorIs(t, err, cart.ErrOutOfStock)

	assert.Equal(t, before, c.Lines())
}

func TestCart_AddItemInvalidQuantity(t *testing.T) {
	c := cart.New()
	_, err := c.AddItem(product("a", "1.00", 3), 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestCart_AddItemRefreshesSnapshot(t *testing.T) {
	c := cart.New()
	_, err := c.AddItem(product("a", "10.00", 5), 1)
	require.NoError(t, err)

	updated := product("a", "12.50", 8)
	updated.Name = "Renamed"
	_, err = c.AddItem(updated, 1)
	require.NoError(t, err)

	line, _ := c.Line("a")
	assert.Equal(t, "Renamed", line.Name)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 8, line.Stock)
	assert.Equal(t, 2, line.Quantity)
}

func TestCart_SetQuantity(t *testing.T) {
	c := cart.New()
	_, err := c.AddItem(product("a", "2.00", 4), 3)
	require.NoError(t, err)

	require.NoError(t, c.SetQuantity("a", 1))
	line, _ := c.Line("a")
	assert.Equal(t, 1, line.Quantity)

	require.NoError(t, c.SetQuantity("a", 4))
	line, _ = c.Line("a")
	assert.Equal(t, 4, line.Quantity)

	// Above the stock ceiling: unchanged for every value in range.
	require.NoError(t, c.SetQuantity("a", 2))
	for q := 5; q < 50; q++ {
		require.NoError(t, c.SetQuantity("a", q))
		line, _ = c.Line("a")
		assert.Equal(t, 2, line.Quantity, "quantity %d", q)
	}

	// Below one: rejected, unchanged.
	for _, q := range []int{0, -1, -100} {
		assert.ErrorIs(t, c.SetQuantity("a", q), cart.ErrInvalidQuantity)
		line, _ = c.Line("a")
		assert.Equal(t, 2, line.Quantity)
	}

	// Unknown products are ignored.
	require.NoError(t, c.SetQuantity("missing", 1))
	assert.Equal(t, 1, c.Len())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := cart.New()
	_, _ = c.AddItem(product("a", "1.00", 5), 1)
	_, _ = c.AddItem(product("b", "1.00", 5), 1)
	_, _ = c.AddItem(product("c", "1.00", 5), 1)

	c.RemoveItem("b")
	c.RemoveItem("missing")
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].ProductID)
	assert.Equal(t, "c", lines[1].ProductID)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalItems())
	assert.True(t, c.TotalAmount().IsZero())
}

func TestCart_Totals(t *testing.T) {
	c := cart.New()
	_, _ = c.AddItem(product("a", "10.00", 10), 2)
	_, _ = c.AddItem(product("b", "5.00", 10), 1)

	assert.Equal(t, 3, c.TotalItems())
	assert.True(t, c.TotalAmount().Equal(decimal.RequireFromString("25.00")), c.TotalAmount().String())
}

func TestCart_TotalAmountAlwaysMatchesLines(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	catalog := []models.Product{
		product("a", "10.00", 5),
		product("b", "0.99", 12),
		product("c", "149.95", 1),
		product("d", "3.33", 0),
	}
	c := cart.New()

	for i := 0; i < 2000; i++ {
		p := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(3) {
		case 0:
			_, _ = c.AddItem(p, rng.Intn(6)-1)
		case 1:
			_ = c.SetQuantity(p.ID, rng.Intn(15)-2)
		case 2:
			c.RemoveItem(p.ID)
		}

		want := decimal.Zero
		items := 0
		for _, l := range c.Lines() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			require.LessOrEqual(t, l.Quantity, l.Stock)
			want = want.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			items += l.Quantity
		}
		require.True(t, want.Equal(c.TotalAmount()), "step %d: want %s got %s", i, want, c.TotalAmount())
		require.Equal(t, items, c.TotalItems())
	}
}

func TestCart_SnapshotIsIsolated(t *testing.T) {
	c := cart.New()
	_, _ = c.AddItem(product("a", "10.00", 5), 2)

	snap := c.Snapshot()
	_ = c.SetQuantity("a", 5)
	_, _ = c.AddItem(product("b", "1.00", 5), 1)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.True(t, snap.Total.Equal(decimal.RequireFromString("20")))
	assert.False(t, snap.TakenAt.IsZero())
}

func TestCart_Restore(t *testing.T) {
	c := cart.New()
	c.Restore([]cart.Line{
		{ProductID: "a", Price: decimal.NewFromInt(1), Stock: 3, Quantity: 2},
		{ProductID: "b", Price: decimal.NewFromInt(1), Stock: 3, Quantity: 0},
		{ProductID: "c", Price: decimal.NewFromInt(1), Stock: 3, Quantity: 4},
		{ProductID: "a", Price: decimal.NewFromInt(1), Stock: 3, Quantity: 1},
	})

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCart_ConcurrentAdds(t *testing.T) {
	c := cart.New()
	p := product("a", "1.00", 50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.AddItem(p, 1)
		}()
	}
	wg.Wait()

	line, _ := c.Line("a")
	assert.Equal(t, 50, line.Quantity)
}
