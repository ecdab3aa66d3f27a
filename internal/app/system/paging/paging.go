// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Page sizes for list endpoints.
const (
	DefaultSize = 50
	MaxSize     = 200
)

// Page describes where a fetched slice sits in the full list. Prev and Next
// are opaque cursors to pass back as ?before= and ?after=.
type Page struct {
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
}

// Keyset carries the cursor and size for one page request.
type Keyset struct {
	Before string
	After  string
	Size   int

	cursor *wafflemongo.Cursor
}

// NewKeyset decodes the cursor. Before wins when both are set; an
// undecodable cursor means the first page.
func NewKeyset(before, after string, size int) Keyset {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	k := Keyset{Before: before, Size: size}
	if before == "" {
		k.After = after
	}
	raw := k.Before
	if raw == "" {
		raw = k.After
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			k.cursor = &c
		}
	}
	return k
}

// FromRequest reads ?before=, ?after= and ?limit=.
func FromRequest(r *http.Request) Keyset {
	size, _ := strconv.Atoi(query.Get(r, "limit"))
	return NewKeyset(query.Get(r, "before"), query.Get(r, "after"), size)
}

func (k Keyset) backward() bool { return k.Before != "" }

// Window returns the filter clause that starts the page after (or before)
// the cursor, or nil on the first page.
func (k Keyset) Window(sortField string) bson.M {
	if k.cursor == nil {
		return nil
	}
	dir := "gt"
	if k.backward() {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, k.cursor.CI, k.cursor.ID)
}

// Find returns options sorting on sortField then _id and fetching one
// extra row to detect another page.
func (k Keyset) Find(sortField string) *options.FindOptions {
	order := 1
	if k.backward() {
		order = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}, {Key: "_id", Value: order}}).
		SetLimit(int64(k.Size + 1))
}

// Finish puts rows fetched with Find back in ascending order, trims the
// look-ahead row, and builds the cursors for neighbouring pages.
func Finish[T any](k Keyset, rows []T, key func(T) string, id func(T) primitive.ObjectID) ([]T, Page) {
	var p Page
	if k.backward() {
		Reverse(rows)
		if len(rows) > k.Size {
			rows = rows[1:]
			p.HasPrev = true
		}
		p.HasNext = true
	} else {
		if len(rows) > k.Size {
			rows = rows[:k.Size]
			p.HasNext = true
		}
		p.HasPrev = k.After != ""
	}

	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		p.Prev = wafflemongo.EncodeCursor(key(first), id(first))
		p.Next = wafflemongo.EncodeCursor(key(last), id(last))
	}
	if !p.HasPrev {
		p.Prev = ""
	}
	if !p.HasNext {
		p.Next = ""
	}
	return rows, p
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
