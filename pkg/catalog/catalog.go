// Package catalog holds the fixed book list and the cumulative chapter
// offsets derived from it.
package catalog

import (
	"sync"

	"biblepace/pkg/domain"
)

// Group is one labelled collection of books for selection lists.
type Group struct {
	Collection domain.Collection `json:"collection"`
	Label      string            `json:"label"`
	Books      []domain.Book     `json:"books"`
}

// Catalog is a read-only view over the ordered books and their offsets.
type Catalog struct {
	books  []domain.CumulativeBook
	byID   map[int]int
	totals domain.Totals
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Books returns a copy of the fixed ordered book list.
func Books() []domain.Book {
	out := make([]domain.Book, len(books))
	copy(out, books)
	return out
}

// Default returns the catalog built from the fixed book list.
// The cumulative table is computed once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New(books)
	})
	return defaultCatalog
}

// New builds a catalog from an ordered book list.
func New(list []domain.Book) *Catalog {
	cumulative := BuildCumulative(list)
	byID := make(map[int]int, len(cumulative))
	for i, b := range cumulative {
		byID[b.ID] = i
	}
	return &Catalog{
		books:  cumulative,
		byID:   byID,
		totals: ComputeTotals(list),
	}
}

// BuildCumulative computes, for each book, the number of chapters that
// precede it in the whole list and in its OLD and NEW subsequences.
// Input order is preserved; empty input yields an empty result.
func BuildCumulative(list []domain.Book) []domain.CumulativeBook {
	out := make([]domain.CumulativeBook, 0, len(list))
	var before, beforeOld, beforeNew int
	for _, b := range list {
		out = append(out, domain.CumulativeBook{
			Book:                  b,
			ChaptersBeforeInBible: before,
			ChaptersBeforeInOld:   beforeOld,
			ChaptersBeforeInNew:   beforeNew,
		})
		before += b.ChapterCount
		switch b.Collection {
		case domain.CollectionOld:
			beforeOld += b.ChapterCount
		case domain.CollectionNew:
			beforeNew += b.ChapterCount
		}
	}
	return out
}

// ComputeTotals sums chapter counts per collection.
func ComputeTotals(list []domain.Book) domain.Totals {
	var t domain.Totals
	for _, b := range list {
		switch b.Collection {
		case domain.CollectionOld:
			t.Old += b.ChapterCount
		case domain.CollectionNew:
			t.New += b.ChapterCount
		}
	}
	t.Bible = t.Old + t.New
	return t
}

// Totals returns the per-collection and whole-catalog chapter totals.
func (c *Catalog) Totals() domain.Totals {
	return c.totals
}

// Cumulative returns a copy of the cumulative table in catalog order.
func (c *Catalog) Cumulative() []domain.CumulativeBook {
	out := make([]domain.CumulativeBook, len(c.books))
	copy(out, c.books)
	return out
}

// Find looks a book up by id.
func (c *Catalog) Find(id int) (domain.CumulativeBook, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.CumulativeBook{}, false
	}
	return c.books[i], true
}

// Grouped returns the books split into the OLD and NEW collections, in
// catalog order.
func (c *Catalog) Grouped() []Group {
	groups := []Group{
		{Collection: domain.CollectionOld, Label: domain.CollectionOld.Label()},
		{Collection: domain.CollectionNew, Label: domain.CollectionNew.Label()},
	}
	for _, b := range c.books {
		for i := range groups {
			if groups[i].Collection == b.Collection {
				groups[i].Books = append(groups[i].Books, b.Book)
			}
		}
	}
	return groups
}

// Chapters lists the selectable chapter numbers of a book.
func (c *Catalog) Chapters(id int) ([]int, bool) {
	b, ok := c.Find(id)
	if !ok {
		return nil, false
	}
	out := make([]int, b.ChapterCount)
	for i := range out {
		out[i] = i + 1
	}
	return out, true
}
