// Package catalog holds the sellable product definitions. Products are
// loaded once at service start and never change afterwards, so the runtime
// Catalog needs no locking.
package catalog

import (
	"context"
	"fmt"
	"sort"
)

// Catalog is an immutable in-memory view of the product table, built once
// at startup.
type Catalog struct {
	byID  map[string]Product
	order []string
}

// NewCatalog builds a catalog from a fixed product set.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{byID: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	sort.Strings(c.order)
	return c
}

// Load reads the full product table into a catalog.
func Load(ctx context.Context, store *Store) (*Catalog, error) {
	products, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading product catalog: %w", err)
	}
	return NewCatalog(products), nil
}

// ByID returns the product with the given ID, or nil if unknown.
func (c *Catalog) ByID(id string) *Product {
	p, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &p
}

// List returns all products in stable ID order.
func (c *Catalog) List() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.byID)
}
