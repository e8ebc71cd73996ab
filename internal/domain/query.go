package domain

import (
	"math"
	"strings"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// SortField — одно поле сортировки, Desc соответствует префиксу "-".
type SortField struct {
	Field string
	Desc  bool
}

// ParseOrdering разбирает список вида "-price,title".
// Неизвестные поля пропускаются; если не осталось ни одного, возвращается def.
func ParseOrdering(raw string, allowed []string, def []SortField) []SortField {
	var out []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		if name == "" || !contains(allowed, name) {
			continue
		}
		out = append(out, SortField{Field: name, Desc: desc})
	}
	if len(out) == 0 {
		return append([]SortField(nil), def...)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Page — номер страницы (с 1) и её размер.
type Page struct {
	Number  int
	PerPage int
}

// NewPage нормализует параметры пагинации. Нулевые значения заменяются значениями по умолчанию.
func NewPage(number, perPage int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if number < 1 {
		return Page{}, NewValidationError("page", "must be a positive integer")
	}
	if perPage < 1 || perPage > MaxPerPage {
		return Page{}, NewValidationError("perpage", "must be between 1 and 100")
	}
	return Page{Number: number, PerPage: perPage}, nil
}

// Limit возвращает размер страницы (по умолчанию DefaultPerPage).
func (p Page) Limit() int {
	if p.PerPage <= 0 {
		return DefaultPerPage
	}
	return p.PerPage
}

// Offset смещение первой записи страницы; при переполнении int возвращает math.MaxInt.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit() {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit()
}

// Slice возвращает диапазон [from, to) страницы в коллекции длины n.
func (p Page) Slice(n int) (int, int) {
	from := min(max(p.Offset(), 0), n)
	to := from + min(p.Limit(), n-from)
	return from, to
}
