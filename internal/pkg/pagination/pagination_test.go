package pagination

import "testing"

func TestNewClampsValues(t *testing.T) {
	p := New(0, 0, 50)
	if p.Page != 1 || p.PerPage != 50 {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.Offset() != 0 {
		t.Fatalf("offset: want 0 got %d", p.Offset())
	}

	p = FromQuery("3", 15)
	if p.Page != 3 || p.PerPage != 15 || p.Offset() != 30 {
		t.Fatalf("unexpected params from query: %+v offset=%d", p, p.Offset())
	}

	p = FromQuery("abc", 15)
	if p.Page != 1 {
		t.Fatalf("invalid page should clamp to 1, got %d", p.Page)
	}
}
