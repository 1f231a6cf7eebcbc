package pagination

import (
	"errors"
	"testing"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTotalPagesAndSliceLength(t *testing.T) {
	for _, p := range []int{10, 50, 100} {
		for _, n := range []int{0, 1, 9, 10, 11, 49, 50, 99, 100, 101, 257} {
			c, err := New(n, p)
			if err != nil {
				t.Fatalf("New(%d,%d): %v", n, p, err)
			}
			wantPages := (n + p - 1) / p
			if got := c.TotalPages(); got != wantPages {
				t.Fatalf("n=%d p=%d TotalPages=%d want %d", n, p, got, wantPages)
			}
			items := ints(n)
			for page := 1; page <= wantPages+1; page++ {
				c.GoTo(page)
				want := min(p, n-(c.Page()-1)*p)
				if want < 0 {
					want = 0
				}
				got := Visible(c, items)
				if len(got) != want {
					t.Fatalf("n=%d p=%d page=%d len=%d want %d", n, p, c.Page(), len(got), want)
				}
				if len(got) > 0 && got[0] != (c.Page()-1)*p {
					t.Fatalf("window starts at %d want %d", got[0], (c.Page()-1)*p)
				}
			}
		}
	}
}

func TestSetPageSize_ResetsPage(t *testing.T) {
	c, _ := New(1000, 10)
	for _, prior := range []int{1, 2, 7, 100} {
		for _, size := range Sizes() {
			if err := c.SetPageSize(10); err != nil {
				t.Fatal(err)
			}
			c.GoTo(prior)
			if err := c.SetPageSize(size); err != nil {
				t.Fatalf("SetPageSize(%d): %v", size, err)
			}
			if c.Page() != 1 {
				t.Fatalf("prior=%d size=%d page=%d want 1", prior, size, c.Page())
			}
		}
	}
}

func TestSetPageSize_Unsupported(t *testing.T) {
	c, _ := New(30, 10)
	c.NextPage()
	err := c.SetPageSize(25)
	if !errors.Is(err, ErrUnsupportedPageSize) {
		t.Fatalf("err=%v want ErrUnsupportedPageSize", err)
	}
	if c.PageSize() != 10 || c.Page() != 2 {
		t.Fatalf("state changed on rejected size: size=%d page=%d", c.PageSize(), c.Page())
	}
	if _, err := New(30, 7); !errors.Is(err, ErrUnsupportedPageSize) {
		t.Fatalf("New with bad size err=%v", err)
	}
}

func TestBoundaries_NoOp(t *testing.T) {
	c, _ := New(25, 10)
	c.PrevPage()
	if c.Page() != 1 {
		t.Fatalf("prev at first page moved to %d", c.Page())
	}
	c.NextPage()
	c.NextPage()
	if c.Page() != 3 {
		t.Fatalf("page=%d want 3", c.Page())
	}
	c.NextPage()
	if c.Page() != 3 {
		t.Fatalf("next at last page moved to %d", c.Page())
	}
	if c.HasNext() || !c.HasPrev() {
		t.Fatalf("HasNext=%v HasPrev=%v at last page", c.HasNext(), c.HasPrev())
	}
}

func TestGoTo_Clamps(t *testing.T) {
	c, _ := New(25, 10)
	c.GoTo(-4)
	if c.Page() != 1 {
		t.Fatalf("page=%d want 1", c.Page())
	}
	c.GoTo(99)
	if c.Page() != 3 {
		t.Fatalf("page=%d want 3", c.Page())
	}
}

func TestRemoveAll_NoPagesEmptySlice(t *testing.T) {
	c, _ := New(120, 50)
	c.NextPage()
	if err := c.SetPageSize(RemoveAll); err != nil {
		t.Fatal(err)
	}
	if c.TotalPages() != 0 {
		t.Fatalf("TotalPages=%d want 0", c.TotalPages())
	}
	if got := Visible(c, ints(120)); len(got) != 0 {
		t.Fatalf("visible=%d want 0", len(got))
	}
	if c.HasNext() || c.HasPrev() {
		t.Fatal("navigation should be disabled when showing none")
	}
	c.NextPage()
	c.GoTo(5)
	if c.Page() != 1 {
		t.Fatalf("page=%d want 1", c.Page())
	}
}

func TestEmptyCollection(t *testing.T) {
	c, _ := New(0, 10)
	if c.TotalPages() != 0 || c.HasNext() || c.HasPrev() {
		t.Fatalf("pages=%d next=%v prev=%v", c.TotalPages(), c.HasNext(), c.HasPrev())
	}
	if got := Visible(c, []string{}); got != nil {
		t.Fatalf("visible=%v want nil", got)
	}
}

func TestVisible_DoesNotAliasTail(t *testing.T) {
	c, _ := New(20, 10)
	items := ints(20)
	page := Visible(c, items)
	page = append(page, -1)
	if items[10] != 10 {
		t.Fatalf("append through page slice clobbered next page: %d", items[10])
	}
	_ = page
}
