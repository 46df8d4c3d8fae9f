// Package pagination реализует общий для всех списков консоли контракт постраничного вывода.
package pagination

// DefaultPageSize задаёт размер страницы по умолчанию.
const DefaultPageSize = 10

// Page описывает видимую страницу списка.
type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	Size       int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// TotalPages возвращает число страниц, не меньше одной.
func TotalPages(count, size int) int {
	if size <= 0 {
		return 1
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate возвращает срез items[(number-1)*size : number*size], обрезанный по длине списка.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if number < 1 {
		number = 1
	}

	start := (number - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	visible := items[start:end:end]
	if visible == nil {
		visible = []T{}
	}

	return Page[T]{
		Items:      visible,
		Number:     number,
		Size:       size,
		TotalItems: len(items),
		TotalPages: TotalPages(len(items), size),
	}
}

// Pager хранит номер и размер текущей страницы.
type Pager struct {
	number int
	size   int
}

// NewPager создаёт пейджер на первой странице.
func NewPager(size int) Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Pager{number: 1, size: size}
}

// Number возвращает номер текущей страницы.
func (p *Pager) Number() int { return p.number }

// Size возвращает размер страницы.
func (p *Pager) Size() int { return p.size }

// SetNumber переходит на указанную страницу; номера меньше единицы приводятся к первой.
func (p *Pager) SetNumber(n int) {
	if n < 1 {
		n = 1
	}
	p.number = n
}

// SetSize меняет размер страницы и всегда возвращает на первую страницу.
func (p *Pager) SetSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	p.size = size
	p.number = 1
}

// Window возвращает номера страниц для навигации: не больше max номеров вокруг текущей.
func Window(current, total, max int) []int {
	if total < 1 {
		total = 1
	}
	if max <= 0 || total <= max {
		res := make([]int, total)
		for i := range res {
			res[i] = i + 1
		}
		return res
	}

	start := current - max/2
	if start < 1 {
		start = 1
	}
	end := start + max - 1
	if end > total {
		end = total
		start = end - max + 1
		if start < 1 {
			start = 1
		}
	}

	res := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		res = append(res, i)
	}
	return res
}
