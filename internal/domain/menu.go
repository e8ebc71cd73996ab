package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxTitleLength = 255

// MaxPrice — верхняя граница цены (decimal(6,2)), не включительно.
var MaxPrice = decimal.New(10000, 0)

// MenuItem — позиция меню.
type MenuItem struct {
	ID        int64
	Title     string
	Price     decimal.Decimal
	Inventory int
}

// Validate проверяет поля позиции меню.
func (m MenuItem) Validate() error {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return NewValidationError("title", "must be at most 255 characters")
	}
	if err := ValidatePrice("price", m.Price); err != nil {
		return err
	}
	if m.Inventory < 0 {
		return NewValidationError("inventory", "must be non-negative")
	}
	return nil
}

// ValidatePrice проверяет денежное значение: >= 0, не более двух знаков после запятой, < 10000.
func ValidatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidationError(field, "must be non-negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return NewValidationError(field, "must have at most 2 decimal places")
	}
	if price.GreaterThanOrEqual(MaxPrice) {
		return NewValidationError(field, "must be less than 10000")
	}
	return nil
}

// MenuItemPatch — частичное обновление; nil означает «не менять».
type MenuItemPatch struct {
	Title     *string
	Price     *decimal.Decimal
	Inventory *int
}

// Apply возвращает позицию с применёнными изменениями.
func (p MenuItemPatch) Apply(item MenuItem) MenuItem {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Inventory != nil {
		item.Inventory = *p.Inventory
	}
	return item
}

// MenuFilter — параметры выборки меню.
type MenuFilter struct {
	// Title и Search ищут подстроку без учёта регистра.
	Title        string
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinInventory *int
	MaxInventory *int
	Ordering     []SortField
	Page         Page
}

// Matches проверяет позицию на соответствие фильтру (без сортировки и пагинации).
func (f MenuFilter) Matches(item MenuItem) bool {
	title := strings.ToLower(item.Title)
	if f.Title != "" && !strings.Contains(title, strings.ToLower(f.Title)) {
		return false
	}
	if f.Search != "" && !strings.Contains(title, strings.ToLower(f.Search)) {
		return false
	}
	if f.MinPrice != nil && item.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && item.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinInventory != nil && item.Inventory < *f.MinInventory {
		return false
	}
	if f.MaxInventory != nil && item.Inventory > *f.MaxInventory {
		return false
	}
	return true
}

// Поля сортировки меню.
const (
	MenuSortTitle     = "title"
	MenuSortPrice     = "price"
	MenuSortInventory = "inventory"
)

// MenuSortFields — допустимые поля сортировки меню.
var MenuSortFields = []string{MenuSortPrice, MenuSortTitle, MenuSortInventory}

// DefaultMenuOrdering — порядок по умолчанию.
var DefaultMenuOrdering = []SortField{{Field: MenuSortTitle}}

// MenuPage — страница меню вместе с общим количеством.
type MenuPage struct {
	Items []MenuItem
	Total int
}
