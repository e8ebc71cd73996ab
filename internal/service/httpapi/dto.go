package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type menuItemResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Inventory int    `json:"inventory"`
}

func toMenuItem(item domain.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:        item.ID,
		Title:     item.Title,
		Price:     item.Price.StringFixed(2),
		Inventory: item.Inventory,
	}
}

type lineResponse struct {
	ID        int64  `json:"id"`
	MenuItem  *int64 `json:"menuitem"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Price     string `json:"price"`
}

func toCartLine(line domain.CartLine) lineResponse {
	menuItem := line.MenuItemID
	return lineResponse{
		ID:        line.ID,
		MenuItem:  &menuItem,
		Title:     line.Title,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice.StringFixed(2),
		Price:     line.Price.StringFixed(2),
	}
}

func toOrderLine(line domain.OrderLine) lineResponse {
	resp := lineResponse{
		ID:        line.ID,
		Title:     line.Title,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice.StringFixed(2),
		Price:     line.Price.StringFixed(2),
	}
	// Позиция меню могла быть удалена после оформления.
	if line.MenuItemID > 0 {
		menuItem := line.MenuItemID
		resp.MenuItem = &menuItem
	}
	return resp
}

type timelineResponse struct {
	Type     string `json:"type"`
	Reason   string `json:"reason,omitempty"`
	Actor    int64  `json:"actor,omitempty"`
	Occurred string `json:"occurred"`
}

type orderResponse struct {
	ID           int64              `json:"id"`
	User         int64              `json:"user"`
	DeliveryCrew *int64             `json:"delivery_crew"`
	Status       int                `json:"status"`
	Total        string             `json:"total"`
	Date         string             `json:"date"`
	Version      int64              `json:"version"`
	OrderItems   []lineResponse     `json:"order_items"`
	Timeline     []timelineResponse `json:"timeline,omitempty"`
}

func toOrder(order domain.Order) orderResponse {
	items := make([]lineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, toOrderLine(line))
	}
	return orderResponse{
		ID:           order.ID,
		User:         order.UserID,
		DeliveryCrew: order.DeliveryCrewID,
		Status:       int(order.Status),
		Total:        order.Total.StringFixed(2),
		Date:         order.Date.UTC().Format(time.RFC3339Nano),
		Version:      order.Version,
		OrderItems:   items,
	}
}

func toOrderWithTimeline(order domain.Order, events []domain.TimelineEvent) orderResponse {
	resp := toOrder(order)
	resp.Timeline = make([]timelineResponse, 0, len(events))
	for _, event := range events {
		resp.Timeline = append(resp.Timeline, timelineResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Actor:    event.ActorID,
			Occurred: event.Occurred.UTC().Format(time.RFC3339Nano),
		})
	}
	return resp
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUser(user domain.User) userResponse {
	return userResponse{ID: user.ID, Name: user.Name, Email: user.Email}
}

type pageResponse[T any] struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"perpage"`
	Results []T `json:"results"`
}

func newPage[T any](page domain.Page, total int, results []T) pageResponse[T] {
	return pageResponse[T]{Count: total, Page: page.Number, PerPage: page.PerPage, Results: results}
}

type messageResponse struct {
	Message string `json:"message"`
}
