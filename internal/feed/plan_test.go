package feed

import (
	"errors"
	"testing"
	"time"

	"blogcristao/internal/model"
)

// =============================================================================
// PLANNER TESTS
// =============================================================================

func TestNewPlan_AllPosts(t *testing.T) {
	plan := NewPlan("", 10, nil)

	if len(plan.Filters) != 0 {
		t.Errorf("filters = %v, want none", plan.Filters)
	}
	if plan.OrderBy.Field != FieldCreatedAt || !plan.OrderBy.Desc {
		t.Errorf("order = %+v, want createdAt desc", plan.OrderBy)
	}
	if plan.Limit != 10 {
		t.Errorf("limit = %d, want 10", plan.Limit)
	}
	if plan.StartAfter != nil {
		t.Error("first page should not have a cursor")
	}
	if plan.AuthorUID() != "" {
		t.Errorf("AuthorUID() = %q, want empty", plan.AuthorUID())
	}
}

func TestNewPlan_ByAuthor(t *testing.T) {
	plan := NewPlan("uid-1", 5, nil)

	if len(plan.Filters) != 1 {
		t.Fatalf("filters = %d, want 1", len(plan.Filters))
	}
	f := plan.Filters[0]
	if f.Field != FieldAuthorUID || f.Op != OpEquals || f.Value != "uid-1" {
		t.Errorf("filter = %+v, want authorUID == uid-1", f)
	}
	if plan.AuthorUID() != "uid-1" {
		t.Errorf("AuthorUID() = %q, want uid-1", plan.AuthorUID())
	}
}

func TestNewPlan_ClampsPageSize(t *testing.T) {
	cases := map[int]int{0: DefaultPageSize, -3: DefaultPageSize, 1: 1, 50: 50, 500: MaxPageSize}
	for in, want := range cases {
		if got := NewPlan("", in, nil).Limit; got != want {
			t.Errorf("NewPlan(pageSize=%d).Limit = %d, want %d", in, got, want)
		}
	}
}

func TestNewPlan_IsPure(t *testing.T) {
	after := &Cursor{CreatedAt: time.Unix(100, 0), ID: "p1"}
	plan := NewPlan("uid-1", 10, after)

	// Mutating the caller's cursor must not leak into the plan.
	after.ID = "changed"
	if plan.StartAfter.ID != "p1" {
		t.Errorf("StartAfter.ID = %q, want p1", plan.StartAfter.ID)
	}

	again := NewPlan("uid-1", 10, &Cursor{CreatedAt: time.Unix(100, 0), ID: "p1"})
	if again.StartAfter.ID != plan.StartAfter.ID || again.Limit != plan.Limit || again.AuthorUID() != plan.AuthorUID() {
		t.Error("same inputs should produce the same plan")
	}
}

func TestPlan_AfterKeepsFirstPageUntouched(t *testing.T) {
	first := NewPlan("uid-1", 10, nil)
	next := first.After(Cursor{CreatedAt: time.Unix(50, 0), ID: "p9"})

	if first.StartAfter != nil {
		t.Error("After should not modify the original plan")
	}
	if next.StartAfter == nil || next.StartAfter.ID != "p9" {
		t.Errorf("next.StartAfter = %+v, want p9", next.StartAfter)
	}
	if next.AuthorUID() != "uid-1" || next.Limit != 10 {
		t.Error("After should keep filters and limit")
	}
	if next.FirstPage().StartAfter != nil {
		t.Error("FirstPage should drop the cursor")
	}
}

// =============================================================================
// CURSOR TESTS
// =============================================================================

func TestCursor_EncodeParse(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC), ID: "post:with:colons"}

	parsed, err := ParseCursor(c.Encode())
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !parsed.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", parsed.CreatedAt, c.CreatedAt)
	}
	if parsed.ID != c.ID {
		t.Errorf("ID = %q, want %q", parsed.ID, c.ID)
	}
}

func TestParseCursor_Malformed(t *testing.T) {
	for _, s := range []string{"", "!!!", "bm90LWEtY3Vyc29y", "MTIzOg"} {
		if _, err := ParseCursor(s); !errors.Is(err, model.ErrInvalidCursor) {
			t.Errorf("ParseCursor(%q) error = %v, want ErrInvalidCursor", s, err)
		}
	}
}

// =============================================================================
// TIMESTAMP TESTS
// =============================================================================

func TestNormalizeTimestamp(t *testing.T) {
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	native := time.Date(2024, 3, 9, 8, 7, 6, 5_000_000, time.FixedZone("BRT", -3*3600))

	tests := []struct {
		name   string
		raw    interface{}
		want   string
		wantOK bool
	}{
		{"native time", native, "2024-03-09T11:07:06.005Z", true},
		{"pointer time", &native, "2024-03-09T11:07:06.005Z", true},
		{"iso string", "2024-03-09T11:07:06.005Z", "2024-03-09T11:07:06.005Z", true},
		{"postgres text", []byte("2024-03-09 11:07:06.005+00"), "2024-03-09T11:07:06.005Z", true},
		{"nil", nil, "2030-01-01T00:00:00.000Z", false},
		{"garbage string", "yesterday", "2030-01-01T00:00:00.000Z", false},
		{"number", 1712345678, "2030-01-01T00:00:00.000Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := NormalizeTimestamp(tt.raw, fallback)
			if got != tt.want {
				t.Errorf("iso = %q, want %q", got, tt.want)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}
