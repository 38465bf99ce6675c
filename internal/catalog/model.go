package catalog

import "github.com/google/uuid"

type Category string

const (
	CategoryPrimary   Category = "primary"
	CategorySecondary Category = "secondary"
)

type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Catalog is ordered; an item's position is its index in the slice.
type Catalog []Item

func (c Catalog) Clone() Catalog {
	if c == nil {
		return Catalog{}
	}
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}

func (c Catalog) IndexOf(id string) (int, bool) {
	for i, it := range c {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

// State is the whole catalog as seen by consumers. Version increases by one
// for every applied mutation.
type State struct {
	Version   uint64  `json:"version"`
	Primary   Catalog `json:"primary"`
	Secondary Catalog `json:"secondary"`
}

func (s State) Clone() State {
	return State{
		Version:   s.Version,
		Primary:   s.Primary.Clone(),
		Secondary: s.Secondary.Clone(),
	}
}

type SeedItem struct {
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"`
}

type Seed struct {
	Primary   []SeedItem `json:"primary" yaml:"primary"`
	Secondary []SeedItem `json:"secondary" yaml:"secondary"`
}

func DefaultSeed() Seed {
	return Seed{
		Primary: []SeedItem{
			{Name: "Honda", Price: 100},
			{Name: "BMW", Price: 150},
			{Name: "Mercedes", Price: 200},
			{Name: "Baleno", Price: 100},
		},
		Secondary: []SeedItem{
			{Name: "Nokia", Price: 123},
			{Name: "Samsung", Price: 321},
		},
	}
}

func NewItemID() string {
	return "i_" + uuid.NewString()
}

// NewState builds the initial state from seed. newID may be nil, in which
// case NewItemID is used.
func NewState(seed Seed, newID func() string) State {
	if newID == nil {
		newID = NewItemID
	}
	build := func(items []SeedItem) Catalog {
		out := make(Catalog, 0, len(items))
		for _, si := range items {
			out = append(out, Item{ID: newID(), Name: si.Name, Price: si.Price})
		}
		return out
	}
	return State{
		Primary:   build(seed.Primary),
		Secondary: build(seed.Secondary),
	}
}
