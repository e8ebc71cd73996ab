package domain

import "github.com/shopspring/decimal"

// CartLine — строка корзины, уникальная по паре (пользователь, позиция меню).
type CartLine struct {
	ID         int64
	UserID     int64
	MenuItemID int64
	// Title подтягивается из меню при чтении и не хранится в строке.
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
}

// MaxCartQuantity — верхняя граница количества в строке корзины (колонка INTEGER).
const MaxCartQuantity = 2147483647

// MaxAmount — наибольшая сумма строки или заказа, которую вмещает NUMERIC(10,2).
var MaxAmount = decimal.RequireFromString("99999999.99")

// LineTotal считает сумму строки: quantity × unit_price.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ValidateCartQuantity проверяет количество, добавляемое в корзину.
func ValidateCartQuantity(quantity int) error {
	if quantity < 1 {
		return NewValidationError("quantity", "must be at least 1")
	}
	if quantity > MaxCartQuantity {
		return NewValidationError("quantity", "must not exceed 2147483647")
	}
	return nil
}

// ValidateCartLine проверяет итоговое количество строки и её сумму по цене unitPrice.
func ValidateCartLine(quantity int, unitPrice decimal.Decimal) error {
	if err := ValidateCartQuantity(quantity); err != nil {
		return err
	}
	if LineTotal(unitPrice, quantity).GreaterThan(MaxAmount) {
		return NewValidationError("quantity", "line total must not exceed 99999999.99")
	}
	return nil
}

// NewCartLine создаёт строку корзины со снимком текущей цены позиции.
func NewCartLine(userID int64, item MenuItem, quantity int) CartLine {
	return CartLine{
		UserID:     userID,
		MenuItemID: item.ID,
		Title:      item.Title,
		Quantity:   quantity,
		UnitPrice:  item.Price,
		Price:      LineTotal(item.Price, quantity),
	}
}

// Merge увеличивает количество и обновляет цену до текущей цены меню.
// Сумма количеств не должна выходить за MaxCartQuantity, а сумма строки за MaxAmount.
func (l CartLine) Merge(quantity int, item MenuItem) (CartLine, error) {
	if err := ValidateCartQuantity(quantity); err != nil {
		return l, err
	}
	if quantity > MaxCartQuantity-l.Quantity {
		return l, NewValidationError("quantity", "must not exceed 2147483647")
	}
	if err := ValidateCartLine(l.Quantity+quantity, item.Price); err != nil {
		return l, err
	}

	l.Quantity += quantity
	l.UnitPrice = item.Price
	l.Title = item.Title
	l.Price = LineTotal(l.UnitPrice, l.Quantity)
	return l, nil
}
