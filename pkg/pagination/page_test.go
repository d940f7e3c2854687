package pagination

import (
	"errors"
	"testing"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestPaginate(t *testing.T) {
	items := makeItems(25)

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantFirst int
		wantLen   int
	}{
		{"first page", 1, 10, 0, 10},
		{"middle page", 2, 10, 10, 10},
		{"last partial page", 3, 10, 20, 5},
		{"beyond last page", 4, 10, 0, 0},
		{"far beyond", 100, 10, 0, 0},
		{"page size larger than collection", 1, 100, 0, 25},
		{"exact fit", 5, 5, 20, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Paginate(items, tt.page, tt.pageSize)
			if err != nil {
				t.Fatalf("Paginate() error = %v", err)
			}
			if len(page.Items) != tt.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(page.Items), tt.wantLen)
			}
			if tt.wantLen > 0 && page.Items[0] != tt.wantFirst {
				t.Errorf("Items[0] = %d, want %d", page.Items[0], tt.wantFirst)
			}
			if page.Items == nil {
				t.Error("Items should be empty, not nil")
			}
			if page.TotalItems != 25 {
				t.Errorf("TotalItems = %d, want 25", page.TotalItems)
			}
		})
	}
}

func TestPaginate_TwentyFiveByTen(t *testing.T) {
	items := makeItems(25)

	page1, _ := Paginate(items, 1, 10)
	page3, _ := Paginate(items, 3, 10)
	page4, err := Paginate(items, 4, 10)
	if err != nil {
		t.Fatalf("page beyond end should not error: %v", err)
	}

	if page1.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page1.TotalPages)
	}
	for i, v := range page1.Items {
		if v != i {
			t.Errorf("page1.Items[%d] = %d, want %d", i, v, i)
		}
	}
	if len(page3.Items) != 5 || page3.Items[0] != 20 || page3.Items[4] != 24 {
		t.Errorf("page3.Items = %v, want [20..24]", page3.Items)
	}
	if len(page4.Items) != 0 {
		t.Errorf("page4.Items = %v, want empty", page4.Items)
	}
	if page3.HasNext() {
		t.Error("last page should not have a next page")
	}
	if !page1.HasNext() {
		t.Error("first page should have a next page")
	}
}

func TestPaginate_Invalid(t *testing.T) {
	items := makeItems(5)

	if _, err := Paginate(items, 0, 10); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("page 0: expected ErrInvalidPage, got %v", err)
	}
	if _, err := Paginate(items, -1, 10); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("page -1: expected ErrInvalidPage, got %v", err)
	}
	if _, err := Paginate(items, 1, 0); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("size 0: expected ErrInvalidPageSize, got %v", err)
	}
}

func TestPaginate_Empty(t *testing.T) {
	page, err := Paginate([]string{}, 1, 10)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if page.TotalPages != 0 || len(page.Items) != 0 {
		t.Errorf("empty collection: got %+v", page)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{25, 10, 3},
		{20, 10, 2},
		{1, 10, 1},
		{0, 10, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{DefaultPageSize: 50, MaxPageSize: 500}

	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-3, 50},
		{10, 10},
		{500, 500},
		{10000, 500},
	}

	for _, tt := range tests {
		if got := cfg.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := (Config{}).Normalize(0); got != 1 {
		t.Errorf("zero config Normalize(0) = %d, want 1", got)
	}
}
