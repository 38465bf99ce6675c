// Package view renders the primary catalog. It holds no state: every
// rendering is computed from the snapshot it is given.
package view

import (
	"context"

	"WebStore/internal/catalog"
)

type Mutator interface {
	IncrementPrice(ctx context.Context, id string) (catalog.Item, error)
	DecrementPrice(ctx context.Context, id string) (catalog.Item, error)
}

type Source interface {
	Mutator
	GetSnapshot(ctx context.Context) (catalog.State, error)
}

type Row struct {
	ID       string
	Position int
	Name     string
	Price    int64

	Increment func(ctx context.Context) error
	Decrement func(ctx context.Context) error
}

// Rows returns one row per primary item, in catalog order. The row actions
// are bound to the item's ID, not its position.
func Rows(st catalog.State, m Mutator) []Row {
	rows := make([]Row, 0, len(st.Primary))
	for i, it := range st.Primary {
		id := it.ID
		rows = append(rows, Row{
			ID:       id,
			Position: i,
			Name:     it.Name,
			Price:    it.Price,
			Increment: func(ctx context.Context) error {
				_, err := m.IncrementPrice(ctx, id)
				return err
			},
			Decrement: func(ctx context.Context) error {
				_, err := m.DecrementPrice(ctx, id)
				return err
			},
		})
	}
	return rows
}

func Find(rows []Row, id string) (Row, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}
