package table

import "testing"

func TestPager_TotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
		{100, 10, 10},
		{101, 10, 11},
		{3, 1, 3},
	}
	for _, tt := range tests {
		p := NewPager(1, tt.limit, tt.total)
		if got := p.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(total=%d, limit=%d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestPager_Clamp(t *testing.T) {
	p := NewPager(1, 10, 45) // 5 pages

	if got := p.Clamp(0); got != 1 {
		t.Errorf("Clamp(0) = %d, want 1", got)
	}
	if got := p.Clamp(-3); got != 1 {
		t.Errorf("Clamp(-3) = %d, want 1", got)
	}
	if got := p.Clamp(3); got != 3 {
		t.Errorf("Clamp(3) = %d, want 3", got)
	}
	if got := p.Clamp(99); got != 5 {
		t.Errorf("Clamp(99) = %d, want 5", got)
	}

	// Construction clamps too.
	if got := NewPager(99, 10, 45).Page; got != 5 {
		t.Errorf("NewPager page = %d, want 5", got)
	}
	// Empty data set pins to page 1.
	if got := NewPager(7, 10, 0).Page; got != 1 {
		t.Errorf("NewPager empty page = %d, want 1", got)
	}
}

func TestPager_SliceBounds(t *testing.T) {
	p := NewPager(2, 10, 25)
	lo, hi := p.SliceBounds(25)
	if lo != 10 || hi != 20 {
		t.Errorf("bounds = [%d,%d), want [10,20)", lo, hi)
	}

	// Last, partial page.
	p = NewPager(3, 10, 25)
	lo, hi = p.SliceBounds(25)
	if lo != 20 || hi != 25 {
		t.Errorf("bounds = [%d,%d), want [20,25)", lo, hi)
	}
}

func TestPager_PrevNext(t *testing.T) {
	p := NewPager(1, 10, 30)
	if p.HasPrev() {
		t.Error("first page should have no previous")
	}
	if !p.HasNext() {
		t.Error("first of three pages should have a next")
	}

	p = NewPager(3, 10, 30)
	if !p.HasPrev() || p.HasNext() {
		t.Errorf("last page: HasPrev=%v HasNext=%v", p.HasPrev(), p.HasNext())
	}

	p = NewPager(1, 10, 5)
	if p.HasPrev() || p.HasNext() {
		t.Error("single page should have neither")
	}
}

func TestSerialNumber(t *testing.T) {
	if got := SerialNumber(1, 10, 0); got != 1 {
		t.Errorf("SerialNumber(1,10,0) = %d, want 1", got)
	}
	if got := SerialNumber(1, 10, 9); got != 10 {
		t.Errorf("SerialNumber(1,10,9) = %d, want 10", got)
	}
	// Numbering continues across pages.
	if got := SerialNumber(3, 10, 0); got != 21 {
		t.Errorf("SerialNumber(3,10,0) = %d, want 21", got)
	}
	if got := SerialNumber(2, 25, 4); got != 30 {
		t.Errorf("SerialNumber(2,25,4) = %d, want 30", got)
	}
}
