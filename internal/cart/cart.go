// Package cart holds the per-session shopping cart.
//
// A Cart is a small state machine over lines keyed by product ID. Every line keeps
// a snapshot of the product as it was last looked up, and its quantity is kept
// between 1 and that snapshot's stock. The add path clamps at the stock ceiling
// while SetQuantity refuses to go above it; UI affordances depend on both.
package cart

import (
	"errors"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrOutOfStock is returned when adding a product whose stock is zero.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Line is one product in a cart.
type Line struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock_quantity"` // stock when the product was last looked up
	Quantity    int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable copy of a cart taken at checkout time.
type Snapshot struct {
	Lines   []Line          `json:"lines"`
	Total   decimal.Decimal `json:"total_amount"`
	TakenAt time.Time       `json:"taken_at"`
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Cart is the mutable set of lines owned by one session.
// All methods are safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	lines map[string]*Line
	order []string // product IDs in insertion order
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// AddResult reports what AddItem did to a line.
type AddResult struct {
	Added    int // units added, less than requested when the stock cap applied
	Quantity int // line quantity after the add
	Reduced  int // units dropped because stock fell below the existing quantity
}

// AddItem puts quantity units of product into the cart, merging with an existing
// line. The resulting quantity is capped at the product's stock, which can shrink a
// line when stock dropped since it was last looked up.
func (c *Cart) AddItem(product models.Product, quantity int) (AddResult, error) {
	if quantity < 1 {
		return AddResult{}, ErrInvalidQuantity
	}
	if !product.InStock() {
		return AddResult{}, ErrOutOfStock
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[product.ID]
	previous := 0
	if ok {
		previous = line.Quantity
	} else {
		line = &Line{ProductID: product.ID}
		c.lines[product.ID] = line
		c.order = append(c.order, product.ID)
	}
	line.Name = product.Name
	line.Description = product.Description
	line.ImageURL = product.ImageURL
	line.Price = product.Price
	line.Stock = product.Stock

	next := previous + quantity
	if next > product.Stock {
		next = product.Stock
	}
	line.Quantity = next

	result := AddResult{Quantity: next}
	if next >= previous {
		result.Added = next - previous
	} else {
		result.Reduced = previous - next
	}
	return result, nil
}

// SetQuantity changes the quantity of an existing line. Quantities above the line's
// stock are ignored; unknown product IDs are ignored.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[productID]
	if !ok || quantity > line.Stock {
		return nil
	}
	line.Quantity = quantity
	return nil
}

// RemoveItem deletes the line for productID if present.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = make(map[string]*Line)
	c.order = nil
}

// Line returns a copy of the line for productID.
func (c *Cart) Line(productID string) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[productID]
	if !ok {
		return Line{}, false
	}
	return *line, true
}

// Lines returns copies of all lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.linesLocked()
}

// Len is the number of distinct products in the cart.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.order)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// TotalAmount is the sum of price times quantity over all lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return totalOf(c.linesLocked())
}

// Snapshot copies the current lines and their total in one critical section.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.linesLocked()
	return Snapshot{
		Lines:   lines,
		Total:   totalOf(lines),
		TakenAt: time.Now(),
	}
}

// Restore replaces the cart content with lines, typically loaded from a Persister.
// Lines that break the quantity bounds are dropped.
func (c *Cart) Restore(lines []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = make(map[string]*Line, len(lines))
	c.order = nil
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 || l.Quantity > l.Stock {
			continue
		}
		if _, dup := c.lines[l.ProductID]; dup {
			continue
		}
		line := l
		c.lines[l.ProductID] = &line
		c.order = append(c.order, l.ProductID)
	}
}

func (c *Cart) linesLocked() []Line {
	lines := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, *c.lines[id])
	}
	return lines
}

func totalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
