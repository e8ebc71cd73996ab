package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/identity"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/littlelemon/internal/service/cart"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/catalog"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/membership"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/ordering"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
)

type routerSuite struct {
	suite.Suite

	ctx     context.Context
	router  *gin.Engine
	members domain.MembershipRepository
	menu    domain.MenuRepository
	issuer  *identity.Issuer

	managerID  int64
	crewID     int64
	customerID int64
	otherID    int64

	manager  string
	crew     string
	customer string
	other    string

	item domain.MenuItem
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(routerSuite))
}

func (s *routerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *routerSuite) SetupTest() {
	s.ctx = context.Background()
	store := memory.NewStore()
	s.members = memory.NewMembershipRepository(store)
	s.menu = memory.NewMenuRepository(store)

	issuer, err := identity.NewIssuer("router-test-secret", time.Hour)
	s.Require().NoError(err)
	s.issuer = issuer

	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	entry := log.NewEntry(logger)
	m := metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	s.router = NewRouter(Dependencies{
		Catalog:     catalog.NewService(s.menu, entry),
		Cart:        cartsvc.NewService(memory.NewCartRepository(store), m, entry),
		Orders:      ordering.NewService(memory.NewOrderRepository(store), s.members, memory.NewTimelineRepository(), m, entry),
		Membership:  membership.NewService(s.members, entry),
		Resolver:    identity.NewResolver(issuer, s.members),
		Idempotency: memory.NewIdempotencyRepository(),
		Metrics:     m,
		Logger:      entry,
	}, Config{})

	s.managerID, s.manager = s.user("boss", domain.GroupManager)
	s.crewID, s.crew = s.user("rider", domain.GroupDeliveryCrew)
	s.customerID, s.customer = s.user("alice", "")
	s.otherID, s.other = s.user("bob", "")

	item, err := s.menu.Create(s.ctx, domain.MenuItem{Title: "Greek Salad", Price: decimal.RequireFromString("12.50"), Inventory: 20})
	s.Require().NoError(err)
	s.item = item
}

func (s *routerSuite) user(name string, group domain.Group) (int64, string) {
	user, err := s.members.CreateUser(s.ctx, domain.User{Name: name, Email: name + "@example.com"})
	s.Require().NoError(err)
	if group != "" {
		s.Require().NoError(s.members.AddMember(s.ctx, group, user.ID))
	}
	token, err := s.issuer.Issue(user.ID)
	s.Require().NoError(err)
	return user.ID, token
}

func (s *routerSuite) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *routerSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *routerSuite) requireError(rec *httptest.ResponseRecorder, status int, category string) errorBody {
	s.Require().Equal(status, rec.Code, rec.Body.String())
	var body errorBody
	s.decode(rec, &body)
	s.Require().Equal(category, body.Error)
	return body
}

func (s *routerSuite) fillCart(token string, quantity int) {
	rec := s.do(http.MethodPost, "/api/cart/menu-items", token, map[string]any{"menuitem_id": s.item.ID, "quantity": quantity})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *routerSuite) placeOrder(token string) orderResponse {
	rec := s.do(http.MethodPost, "/api/orders", token, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var order orderResponse
	s.decode(rec, &order)
	return order
}

func (s *routerSuite) TestAuthentication() {
	s.requireError(s.do(http.MethodGet, "/api/menu-items", "", nil), http.StatusUnauthorized, categoryUnauthenticated)
	s.requireError(s.do(http.MethodGet, "/api/menu-items", "garbage", nil), http.StatusUnauthorized, categoryUnauthenticated)

	rec := s.do(http.MethodGet, "/api/menu-items", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NotEmpty(rec.Header().Get(requestIDHeader))
}

func (s *routerSuite) TestMenuLifecycle() {
	s.requireError(s.do(http.MethodPost, "/api/menu-items", s.customer, map[string]any{"title": "Soup", "price": "5.00", "inventory": 3}),
		http.StatusForbidden, categoryForbidden)
	// Анонимный запрос с пустым телом получает 401, а не 400.
	s.requireError(s.do(http.MethodPost, "/api/menu-items", "", nil), http.StatusUnauthorized, categoryUnauthenticated)

	body := s.requireError(s.do(http.MethodPost, "/api/menu-items", s.manager, map[string]any{"title": "Soup", "price": "5.00"}),
		http.StatusBadRequest, categoryValidation)
	s.Require().Equal("inventory", body.Field)

	body = s.requireError(s.do(http.MethodPost, "/api/menu-items", s.manager, map[string]any{"title": "Soup", "price": "-1", "inventory": 3}),
		http.StatusBadRequest, categoryValidation)
	s.Require().Equal("price", body.Field)

	rec := s.do(http.MethodPost, "/api/menu-items", s.manager, map[string]any{"title": "Lemon Soup", "price": "5.5", "inventory": 3})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created menuItemResponse
	s.decode(rec, &created)
	s.Require().Equal("5.50", created.Price)

	rec = s.do(http.MethodGet, "/api/menu-items?search=lemon", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var page pageResponse[menuItemResponse]
	s.decode(rec, &page)
	s.Require().Equal(1, page.Count)
	s.Require().Equal(created.ID, page.Results[0].ID)
	s.Require().Equal(1, page.Page)
	s.Require().Equal(domain.DefaultPerPage, page.PerPage)

	path := fmt.Sprintf("/api/menu-items/%d", created.ID)
	rec = s.do(http.MethodPatch, path, s.manager, map[string]any{"price": 6})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var patched menuItemResponse
	s.decode(rec, &patched)
	s.Require().Equal("6.00", patched.Price)
	s.Require().Equal("Lemon Soup", patched.Title)

	rec = s.do(http.MethodPut, path, s.manager, map[string]any{"title": "Soup", "price": "4.00", "inventory": 0})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.requireError(s.do(http.MethodDelete, path, s.crew, nil), http.StatusForbidden, categoryForbidden)
	rec = s.do(http.MethodDelete, path, s.manager, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.requireError(s.do(http.MethodGet, path, s.customer, nil), http.StatusNotFound, categoryNotFound)
	s.requireError(s.do(http.MethodGet, "/api/menu-items/abc", s.customer, nil), http.StatusNotFound, categoryNotFound)

	// Права проверяются раньше разбора id.
	s.requireError(s.do(http.MethodDelete, "/api/menu-items/abc", s.customer, nil), http.StatusForbidden, categoryForbidden)
	s.requireError(s.do(http.MethodDelete, "/api/menu-items/abc", "", nil), http.StatusUnauthorized, categoryUnauthenticated)
	s.requireError(s.do(http.MethodDelete, "/api/menu-items/abc", s.manager, nil), http.StatusNotFound, categoryNotFound)
}

func (s *routerSuite) TestMenuListValidation() {
	s.requireError(s.do(http.MethodGet, "/api/menu-items?perpage=500", s.customer, nil), http.StatusBadRequest, categoryValidation)
	s.requireError(s.do(http.MethodGet, "/api/menu-items?page=0", s.customer, nil), http.StatusBadRequest, categoryValidation)

	rec := s.do(http.MethodGet, "/api/menu-items?page=9", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var page pageResponse[menuItemResponse]
	s.decode(rec, &page)
	s.Require().Equal(1, page.Count)
	s.Require().Empty(page.Results)

	for _, path := range []string{
		"/api/menu-items?page=4611686018427387905",
		"/api/menu-items?page=9223372036854775807&perpage=100",
		"/api/orders?page=4611686018427387905",
	} {
		rec = s.do(http.MethodGet, path, s.customer, nil)
		s.Require().Equal(http.StatusOK, rec.Code, path+": "+rec.Body.String())
		var far pageResponse[json.RawMessage]
		s.decode(rec, &far)
		s.Require().Empty(far.Results, path)
	}
}

func (s *routerSuite) TestCart() {
	s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.manager, map[string]any{"menuitem_id": s.item.ID}),
		http.StatusForbidden, categoryForbidden)

	body := s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"quantity": 1}),
		http.StatusBadRequest, categoryValidation)
	s.Require().Equal("menuitem_id", body.Field)

	s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"menuitem_id": s.item.ID, "quantity": 0}),
		http.StatusBadRequest, categoryValidation)

	s.fillCart(s.customer, 2)
	rec := s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"menuitem_id": s.item.ID})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/cart/menu-items", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var lines []lineResponse
	s.decode(rec, &lines)
	s.Require().Len(lines, 1)
	s.Require().Equal(3, lines[0].Quantity)
	s.Require().Equal("12.50", lines[0].UnitPrice)
	s.Require().Equal("37.50", lines[0].Price)

	rec = s.do(http.MethodDelete, "/api/cart/menu-items", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var msg messageResponse
	s.decode(rec, &msg)
	s.Require().Equal("Cart cleared", msg.Message)

	rec = s.do(http.MethodGet, "/api/cart/menu-items", s.customer, nil)
	s.decode(rec, &lines)
	s.Require().Empty(lines)
}

func (s *routerSuite) TestCartQuantityLimits() {
	s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"menuitem_id": s.item.ID, "quantity": int64(domain.MaxCartQuantity) + 1}),
		http.StatusBadRequest, categoryValidation)
	// 12.50 × 8000000 уже не помещается в сумму строки.
	s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"menuitem_id": s.item.ID, "quantity": 8000000}),
		http.StatusBadRequest, categoryValidation)

	s.fillCart(s.customer, 7999999)
	s.requireError(s.do(http.MethodPost, "/api/cart/menu-items", s.customer, map[string]any{"menuitem_id": s.item.ID, "quantity": 1}),
		http.StatusBadRequest, categoryValidation)

	rec := s.do(http.MethodGet, "/api/cart/menu-items", s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var lines []lineResponse
	s.decode(rec, &lines)
	s.Require().Len(lines, 1)
	s.Require().Equal(7999999, lines[0].Quantity)
	s.Require().Equal("99999987.50", lines[0].Price)

	order := s.placeOrder(s.customer)
	s.Require().Equal("99999987.50", order.Total)
}

func (s *routerSuite) TestOrderStatusAcceptsIntegralNumbers() {
	s.fillCart(s.customer, 1)
	order := s.placeOrder(s.customer)
	path := fmt.Sprintf("/api/orders/%d", order.ID)

	rec := s.do(http.MethodPatch, path, s.manager, map[string]any{"delivery_crew": s.crewID})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPatch, path, s.crew, `{"status":1.0}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var delivered orderResponse
	s.decode(rec, &delivered)
	s.Require().Equal(1, delivered.Status)

	rec = s.do(http.MethodPatch, path, s.crew, `{"status":0e0}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var pending orderResponse
	s.decode(rec, &pending)
	s.Require().Equal(0, pending.Status)

	s.requireError(s.do(http.MethodPatch, path, s.crew, `{"status":1.5}`), http.StatusBadRequest, categoryValidation)
}

func (s *routerSuite) TestOrderLifecycle() {
	s.requireError(s.do(http.MethodPost, "/api/orders", s.customer, nil), http.StatusBadRequest, categoryEmptyCart)

	s.fillCart(s.customer, 2)
	order := s.placeOrder(s.customer)
	s.Require().Equal(s.customerID, order.User)
	s.Require().Equal("25.00", order.Total)
	s.Require().Equal(0, order.Status)
	s.Require().Nil(order.DeliveryCrew)
	s.Require().Len(order.OrderItems, 1)

	rec := s.do(http.MethodGet, "/api/cart/menu-items", s.customer, nil)
	var lines []lineResponse
	s.decode(rec, &lines)
	s.Require().Empty(lines)

	path := fmt.Sprintf("/api/orders/%d", order.ID)

	// Курьер, не назначенный на заказ, его не видит.
	s.requireError(s.do(http.MethodPatch, path, s.crew, map[string]any{"status": 1}), http.StatusForbidden, categoryForbidden)
	s.requireError(s.do(http.MethodGet, path, s.other, nil), http.StatusForbidden, categoryForbidden)
	s.requireError(s.do(http.MethodPatch, path, s.customer, map[string]any{"status": 1}), http.StatusForbidden, categoryForbidden)

	body := s.requireError(s.do(http.MethodPatch, path, s.manager, map[string]any{"delivery_crew": s.otherID}),
		http.StatusBadRequest, categoryValidation)
	s.Require().Equal("delivery_crew", body.Field)

	rec = s.do(http.MethodPatch, path, s.manager, map[string]any{"delivery_crew": s.crewID})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var assigned orderResponse
	s.decode(rec, &assigned)
	s.Require().NotNil(assigned.DeliveryCrew)
	s.Require().Equal(s.crewID, *assigned.DeliveryCrew)

	body = s.requireError(s.do(http.MethodPatch, path, s.crew, map[string]any{}), http.StatusBadRequest, categoryValidation)
	s.Require().Equal("status", body.Field)
	s.requireError(s.do(http.MethodPatch, path, s.crew, map[string]any{"status": 2}), http.StatusBadRequest, categoryValidation)
	s.requireError(s.do(http.MethodPatch, path, s.crew, map[string]any{"status": true}), http.StatusBadRequest, categoryValidation)

	rec = s.do(http.MethodPatch, path, s.crew, map[string]any{"status": "1", "delivery_crew": nil})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var delivered orderResponse
	s.decode(rec, &delivered)
	s.Require().Equal(1, delivered.Status)
	s.Require().NotNil(delivered.DeliveryCrew, "crew cannot unassign themselves")

	rec = s.do(http.MethodGet, path, s.customer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var details orderResponse
	s.decode(rec, &details)
	s.Require().Len(details.Timeline, 3)
	s.Require().Equal(domain.TimelineOrderPlaced, details.Timeline[0].Type)
	s.Require().Equal(domain.TimelineCrewAssigned, details.Timeline[1].Type)
	s.Require().Equal(domain.TimelineStatusChanged, details.Timeline[2].Type)

	rec = s.do(http.MethodGet, "/api/orders", s.crew, nil)
	var crewPage pageResponse[orderResponse]
	s.decode(rec, &crewPage)
	s.Require().Equal(1, crewPage.Count)

	rec = s.do(http.MethodGet, "/api/orders", s.other, nil)
	var otherPage pageResponse[orderResponse]
	s.decode(rec, &otherPage)
	s.Require().Zero(otherPage.Count)

	s.requireError(s.do(http.MethodDelete, path, s.customer, nil), http.StatusForbidden, categoryForbidden)
	rec = s.do(http.MethodDelete, path, s.manager, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.requireError(s.do(http.MethodGet, path, s.customer, nil), http.StatusNotFound, categoryNotFound)
}

func (s *routerSuite) TestManagerReplaceOrder() {
	s.fillCart(s.customer, 1)
	order := s.placeOrder(s.customer)
	path := fmt.Sprintf("/api/orders/%d", order.ID)

	rec := s.do(http.MethodPut, path, s.manager, map[string]any{"delivery_crew": s.crewID, "status": 1})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var updated orderResponse
	s.decode(rec, &updated)
	s.Require().Equal(1, updated.Status)
	s.Require().Greater(updated.Version, order.Version)

	rec = s.do(http.MethodPut, path, s.manager, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var unchanged orderResponse
	s.decode(rec, &unchanged)
	s.Require().Equal(updated.Version, unchanged.Version)

	s.requireError(s.do(http.MethodPut, path, s.manager, "{not json"), http.StatusBadRequest, categoryValidation)
	s.requireError(s.do(http.MethodPut, "/api/orders/999", s.manager, map[string]any{"status": 1}), http.StatusNotFound, categoryNotFound)
}

func (s *routerSuite) TestIdempotentPlacement() {
	s.fillCart(s.customer, 1)

	rec := s.do(http.MethodPost, "/api/orders", s.customer, nil, idempotencyKeyHeader, "place-1")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var first orderResponse
	s.decode(rec, &first)

	replay := s.do(http.MethodPost, "/api/orders", s.customer, nil, idempotencyKeyHeader, "place-1")
	s.Require().Equal(http.StatusCreated, replay.Code, replay.Body.String())
	s.Require().Equal("true", replay.Header().Get(idempotencyReplayedHeader))
	var second orderResponse
	s.decode(replay, &second)
	s.Require().Equal(first.ID, second.ID)

	rec = s.do(http.MethodGet, "/api/orders", s.customer, nil)
	var page pageResponse[orderResponse]
	s.decode(rec, &page)
	s.Require().Equal(1, page.Count)

	s.fillCart(s.other, 1)
	s.requireError(s.do(http.MethodPost, "/api/orders", s.other, nil, idempotencyKeyHeader, "place-1"), http.StatusConflict, categoryConflict)

	// Неудачная попытка тоже запоминается и повторяется с тем же ответом.
	s.requireError(s.do(http.MethodPost, "/api/orders", s.customer, nil, idempotencyKeyHeader, "place-2"), http.StatusBadRequest, categoryEmptyCart)
	s.fillCart(s.customer, 1)
	failed := s.do(http.MethodPost, "/api/orders", s.customer, nil, idempotencyKeyHeader, "place-2")
	s.requireError(failed, http.StatusBadRequest, categoryEmptyCart)
	s.Require().Equal("true", failed.Header().Get(idempotencyReplayedHeader))
}

func (s *routerSuite) TestGroups() {
	s.requireError(s.do(http.MethodGet, "/api/groups/manager/users", s.customer, nil), http.StatusForbidden, categoryForbidden)
	s.requireError(s.do(http.MethodGet, "/api/groups/chefs/users", s.manager, nil), http.StatusNotFound, categoryNotFound)

	rec := s.do(http.MethodPost, "/api/groups/delivery-crew/users", s.manager, map[string]any{"user_id": s.otherID})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var msg messageResponse
	s.decode(rec, &msg)
	s.Require().Equal("User added to Delivery crew group", msg.Message)

	rec = s.do(http.MethodGet, "/api/groups/delivery-crew/users", s.manager, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var users []userResponse
	s.decode(rec, &users)
	s.Require().Len(users, 2)

	s.requireError(s.do(http.MethodPost, "/api/groups/manager/users", s.manager, map[string]any{"user_id": 9999}),
		http.StatusNotFound, categoryNotFound)
	body := s.requireError(s.do(http.MethodPost, "/api/groups/manager/users", s.manager, map[string]any{}),
		http.StatusBadRequest, categoryValidation)
	s.Require().Equal("user_id", body.Field)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/groups/delivery-crew/users/%d", s.otherID), s.manager, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	// Роль выводится при каждом запросе: исключённый из группы снова покупатель.
	s.fillCart(s.other, 1)
}

func (s *routerSuite) TestUnknownRoute() {
	s.requireError(s.do(http.MethodGet, "/api/nope", s.customer, nil), http.StatusNotFound, categoryNotFound)
}
