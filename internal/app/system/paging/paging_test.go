package paging

import (
	"net/http/httptest"
	"testing"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type row struct {
	key string
	id  primitive.ObjectID
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{key: string(rune('a' + i)), id: primitive.NewObjectID()}
	}
	return out
}

func rowKey(r row) string             { return r.key }
func rowID(r row) primitive.ObjectID { return r.id }

func TestNewKeyset_Size(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultSize},
		{-3, DefaultSize},
		{10, 10},
		{MaxSize + 1, MaxSize},
	}
	for _, tt := range tests {
		if got := NewKeyset("", "", tt.in).Size; got != tt.want {
			t.Errorf("NewKeyset size %d = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromRequest(t *testing.T) {
	cur := wafflemongo.EncodeCursor("bob", primitive.NewObjectID())
	r := httptest.NewRequest("GET", "/api/admin/users?limit=5&after="+cur, nil)
	k := FromRequest(r)
	if k.Size != 5 || k.After != cur || k.Before != "" {
		t.Errorf("unexpected keyset: %+v", k)
	}
	if k.Window("name_ci") == nil {
		t.Error("expected a window for a decodable cursor")
	}
}

func TestWindow_FirstPage(t *testing.T) {
	if w := NewKeyset("", "", 10).Window("name_ci"); w != nil {
		t.Errorf("expected nil window, got %v", w)
	}
	if w := NewKeyset("", "garbage", 10).Window("name_ci"); w != nil {
		t.Errorf("undecodable cursor should mean first page, got %v", w)
	}
}

func TestFind_SortDirection(t *testing.T) {
	fwd := NewKeyset("", "", 10).Find("name_ci")
	if *fwd.Limit != 11 {
		t.Errorf("limit = %d, want 11", *fwd.Limit)
	}
	if s := fwd.Sort.(bson.D); s[0].Value != 1 || s[1].Key != "_id" {
		t.Errorf("forward sort = %v", s)
	}

	cur := wafflemongo.EncodeCursor("m", primitive.NewObjectID())
	back := NewKeyset(cur, "", 10).Find("name_ci")
	if s := back.Sort.(bson.D); s[0].Value != -1 || s[1].Value != -1 {
		t.Errorf("backward sort = %v", s)
	}
}

func TestFinish_Forward(t *testing.T) {
	k := NewKeyset("", "", 3)

	got, p := Finish(k, rows(2), rowKey, rowID)
	if len(got) != 2 || p.HasNext || p.HasPrev || p.Next != "" || p.Prev != "" {
		t.Errorf("short first page: len=%d page=%+v", len(got), p)
	}

	all := rows(4)
	got, p = Finish(k, all, rowKey, rowID)
	if len(got) != 3 || !p.HasNext || p.HasPrev {
		t.Fatalf("full first page: len=%d page=%+v", len(got), p)
	}
	c, ok := wafflemongo.DecodeCursor(p.Next)
	if !ok || c.CI != "c" || c.ID != all[2].id {
		t.Errorf("next cursor points at %+v", c)
	}
}

func TestFinish_AfterCursor(t *testing.T) {
	cur := wafflemongo.EncodeCursor("a", primitive.NewObjectID())
	got, p := Finish(NewKeyset("", cur, 3), rows(2), rowKey, rowID)
	if len(got) != 2 || !p.HasPrev || p.HasNext || p.Prev == "" {
		t.Errorf("last page: len=%d page=%+v", len(got), p)
	}
}

func TestFinish_Backward(t *testing.T) {
	cur := wafflemongo.EncodeCursor("z", primitive.NewObjectID())
	k := NewKeyset(cur, "", 2)

	// Fetched newest-first: c, b, a.
	fetched := rows(3)
	Reverse(fetched)

	got, p := Finish(k, fetched, rowKey, rowID)
	if len(got) != 2 || got[0].key != "b" || got[1].key != "c" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if !p.HasPrev || !p.HasNext {
		t.Errorf("page = %+v", p)
	}
}

func TestReverse(t *testing.T) {
	s := []int{1, 2, 3, 4}
	Reverse(s)
	want := []int{4, 3, 2, 1}
	for i := range s {
		if s[i] != want[i] {
			t.Fatalf("Reverse = %v, want %v", s, want)
		}
	}
	var empty []int
	Reverse(empty)
}
