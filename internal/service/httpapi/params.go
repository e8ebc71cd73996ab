package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// pathID разбирает числовой сегмент пути. Нечисловой id равносилен отсутствующему ресурсу.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, c.Param(name), domain.ErrNotFound)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "enter a whole number")
	}
	return &v, nil
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.NewValidationError(name, "enter a whole number")
	}
	return &v, nil
}

func queryDecimal(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "enter a number")
	}
	return &v, nil
}

// queryTime принимает RFC3339 и дату без времени (начало суток UTC).
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(name, "enter a valid date/time")
}

func queryPage(c *gin.Context) (domain.Page, error) {
	number, err := queryInt(c, "page")
	if err != nil {
		return domain.Page{}, err
	}
	perPage, err := queryInt(c, "perpage")
	if err != nil {
		return domain.Page{}, err
	}

	n, p := 0, 0
	if number != nil {
		if *number == 0 {
			return domain.Page{}, domain.NewValidationError("page", "must be a positive integer")
		}
		n = *number
	}
	if perPage != nil {
		if *perPage == 0 {
			return domain.Page{}, domain.NewValidationError("perpage", "must be between 1 and 100")
		}
		p = *perPage
	}
	return domain.NewPage(n, p)
}

func menuFilterFromQuery(c *gin.Context) (domain.MenuFilter, error) {
	filter := domain.MenuFilter{
		Title:    strings.TrimSpace(c.Query("title")),
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: domain.ParseOrdering(c.Query("ordering"), domain.MenuSortFields, domain.DefaultMenuOrdering),
	}

	var err error
	if filter.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return filter, err
	}
	if filter.MinInventory, err = queryInt(c, "min_inventory"); err != nil {
		return filter, err
	}
	if filter.MaxInventory, err = queryInt(c, "max_inventory"); err != nil {
		return filter, err
	}
	if filter.Page, err = queryPage(c); err != nil {
		return filter, err
	}
	return filter, nil
}

func orderFilterFromQuery(c *gin.Context) (domain.OrderFilter, error) {
	filter := domain.OrderFilter{
		Ordering: domain.ParseOrdering(c.Query("ordering"), domain.OrderSortFields, domain.DefaultOrderOrdering),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	var err error
	if filter.UserID, err = queryInt64(c, "user"); err != nil {
		return filter, err
	}
	if filter.DeliveryCrewID, err = queryInt64(c, "delivery_crew"); err != nil {
		return filter, err
	}
	if filter.DateAfter, err = queryTime(c, "date_after"); err != nil {
		return filter, err
	}
	if filter.DateBefore, err = queryTime(c, "date_before"); err != nil {
		return filter, err
	}
	if filter.Page, err = queryPage(c); err != nil {
		return filter, err
	}
	return filter, nil
}
