package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i + 1
	}
	return res
}

func TestPaginateTwelveItems(t *testing.T) {
	items := seq(12)

	first := Paginate(items, 1, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, first.Items)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 12, first.TotalItems)

	last := Paginate(items, 3, 5)
	assert.Equal(t, []int{11, 12}, last.Items)

	beyond := Paginate(items, 4, 5)
	assert.Empty(t, beyond.Items)
}

func TestTotalPagesProperty(t *testing.T) {
	for size := 1; size <= 12; size++ {
		for n := 0; n <= 40; n++ {
			want := (n + size - 1) / size
			if want < 1 {
				want = 1
			}
			page := Paginate(seq(n), 1, size)
			assert.Equal(t, want, page.TotalPages, "n=%d size=%d", n, size)
			for p := 1; p <= page.TotalPages; p++ {
				assert.LessOrEqual(t, len(Paginate(seq(n), p, size).Items), size)
			}
		}
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]string(nil), 1, 10)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPagerSetSizeResetsPage(t *testing.T) {
	p := NewPager(10)
	p.SetNumber(4)
	assert.Equal(t, 4, p.Number())

	p.SetSize(25)
	assert.Equal(t, 1, p.Number())
	assert.Equal(t, 25, p.Size())
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    []int
	}{
		{name: "fewer pages than window", current: 1, total: 3, want: []int{1, 2, 3}},
		{name: "centered", current: 6, total: 10, want: []int{4, 5, 6, 7, 8}},
		{name: "start", current: 1, total: 10, want: []int{1, 2, 3, 4, 5}},
		{name: "end", current: 10, total: 10, want: []int{6, 7, 8, 9, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Window(tt.current, tt.total, 5))
		})
	}
}
