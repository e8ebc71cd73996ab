package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/identity"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/littlelemon/internal/service/cart"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/catalog"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/httpapi"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/membership"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/ordering"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/outbox"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/postgres"
)

// repositories — набор репозиториев одного хранилища.
type repositories struct {
	menu        domain.MenuRepository
	carts       domain.CartRepository
	orders      domain.OrderRepository
	members     domain.MembershipRepository
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository
}

// recordingPublisher запоминает опубликованные outbox-сообщения.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) eventsFor(aggregateID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []string
	for _, msg := range p.messages {
		if msg.AggregateType == domain.AggregateOrder && msg.AggregateID == aggregateID {
			events = append(events, msg.EventType)
		}
	}
	return events
}

// OrderLifecycleTestSuite прогоняет полный жизненный цикл заказа через HTTP API и outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite

	open func(t *testing.T) repositories

	ctx       context.Context
	repos     repositories
	server    *httptest.Server
	issuer    *identity.Issuer
	publisher *recordingPublisher
	worker    *outbox.Worker
}

func TestOrderLifecycleMemory(t *testing.T) {
	suite.Run(t, &OrderLifecycleTestSuite{open: func(*testing.T) repositories {
		store := memory.NewStore()
		return repositories{
			menu:        memory.NewMenuRepository(store),
			carts:       memory.NewCartRepository(store),
			orders:      memory.NewOrderRepository(store),
			members:     memory.NewMembershipRepository(store),
			outbox:      memory.NewOutboxRepository(store),
			timeline:    memory.NewTimelineRepository(),
			idempotency: memory.NewIdempotencyRepository(),
		}
	}})
}

func TestOrderLifecyclePostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("LL_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("LL_POSTGRES_TEST_DSN is not set")
	}

	suite.Run(t, &OrderLifecycleTestSuite{open: func(t *testing.T) repositories {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			t.Skipf("postgres is not reachable: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("apply migrations: %v", err)
		}
		return repositories{
			menu:        postgres.NewMenuRepository(store),
			carts:       postgres.NewCartRepository(store),
			orders:      postgres.NewOrderRepository(store),
			members:     postgres.NewMembershipRepository(store),
			outbox:      postgres.NewOutboxRepository(store),
			timeline:    postgres.NewTimelineRepository(store),
			idempotency: postgres.NewIdempotencyRepository(store),
		}
	}})
}

func (s *OrderLifecycleTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.ctx = context.Background()
	s.repos = s.open(s.T())

	issuer, err := identity.NewIssuer("integration-secret", time.Hour)
	s.Require().NoError(err)
	s.issuer = issuer

	m := metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())
	router := httpapi.NewRouter(httpapi.Dependencies{
		Catalog:     catalog.NewService(s.repos.menu, logger),
		Cart:        cartsvc.NewService(s.repos.carts, m, logger),
		Orders:      ordering.NewService(s.repos.orders, s.repos.members, s.repos.timeline, m, logger),
		Membership:  membership.NewService(s.repos.members, logger),
		Resolver:    identity.NewResolver(issuer, s.repos.members),
		Idempotency: s.repos.idempotency,
		Metrics:     m,
		Logger:      logger,
	}, httpapi.Config{})
	s.server = httptest.NewServer(router)

	s.publisher = &recordingPublisher{}
	s.worker = outbox.NewWorker(s.repos.outbox, s.publisher,
		outbox.WithLogger(logger),
		outbox.WithBatchSize(500),
		outbox.WithRetryBaseDelay(time.Millisecond),
	)
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	s.server.Close()
}

// newUser заводит пользователя с уникальной почтой и возвращает его id и токен.
func (s *OrderLifecycleTestSuite) newUser(name string, groups ...domain.Group) (int64, string) {
	user, err := s.repos.members.CreateUser(s.ctx, domain.User{
		Name:  name,
		Email: name + "-" + uuid.NewString()[:8] + "@littlelemon.test",
	})
	s.Require().NoError(err)
	for _, group := range groups {
		s.Require().NoError(s.repos.members.AddMember(s.ctx, group, user.ID))
	}
	token, err := s.issuer.Issue(user.ID)
	s.Require().NoError(err)
	return user.ID, token
}

func (s *OrderLifecycleTestSuite) call(method, path, token string, body any, dst any, headers ...string) int {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = data
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if dst != nil && resp.StatusCode < 300 {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

// drainOutbox публикует backlog целиком: в общей базе могут остаться сообщения прошлых прогонов.
func (s *OrderLifecycleTestSuite) drainOutbox() {
	for i := 0; i < 20; i++ {
		s.worker.ProcessOnce(s.ctx)
		stats, err := s.repos.outbox.Stats(s.ctx)
		s.Require().NoError(err)
		if stats.PendingCount == 0 {
			return
		}
	}
	s.FailNow("outbox backlog was not drained")
}

type menuItem struct {
	ID    int64  `json:"id"`
	Price string `json:"price"`
}

type order struct {
	ID           int64  `json:"id"`
	User         int64  `json:"user"`
	DeliveryCrew *int64 `json:"delivery_crew"`
	Status       int    `json:"status"`
	Total        string `json:"total"`
	OrderItems   []struct {
		Quantity int    `json:"quantity"`
		Price    string `json:"price"`
	} `json:"order_items"`
	Timeline []struct {
		Type string `json:"type"`
	} `json:"timeline"`
}

func (s *OrderLifecycleTestSuite) TestPlaceAssignDeliverDelete() {
	_, manager := s.newUser("manager", domain.GroupManager)
	crewID, crew := s.newUser("crew", domain.GroupDeliveryCrew)
	customerID, customer := s.newUser("customer")

	var item menuItem
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/menu-items", manager,
		map[string]any{"title": "Lemon Dessert " + uuid.NewString()[:6], "price": "6.25", "inventory": 20}, &item))

	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/cart/menu-items", customer,
		map[string]any{"menuitem_id": item.ID, "quantity": 2}, nil))
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/cart/menu-items", customer,
		map[string]any{"menuitem_id": item.ID}, nil))

	var placed order
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/orders", customer, nil, &placed))
	s.Equal(customerID, placed.User)
	s.Equal("18.75", placed.Total)
	s.Require().Len(placed.OrderItems, 1)
	s.Equal(3, placed.OrderItems[0].Quantity)

	var cart []json.RawMessage
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, "/api/cart/menu-items", customer, nil, &cart))
	s.Empty(cart, "корзина очищается при оформлении")

	path := "/api/orders/" + strconv.FormatInt(placed.ID, 10)
	s.Equal(http.StatusForbidden, s.call(http.MethodPatch, path, crew, map[string]any{"status": 1}, nil),
		"курьер без назначения не видит заказ")

	var assigned order
	s.Require().Equal(http.StatusOK, s.call(http.MethodPatch, path, manager, map[string]any{"delivery_crew": crewID}, &assigned))
	s.Require().NotNil(assigned.DeliveryCrew)
	s.Equal(crewID, *assigned.DeliveryCrew)

	var delivered order
	s.Require().Equal(http.StatusOK, s.call(http.MethodPatch, path, crew, map[string]any{"status": 1}, &delivered))
	s.Equal(1, delivered.Status)

	var details order
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, path, customer, nil, &details))
	types := make([]string, 0, len(details.Timeline))
	for _, event := range details.Timeline {
		types = append(types, event.Type)
	}
	s.Equal([]string{domain.TimelineOrderPlaced, domain.TimelineCrewAssigned, domain.TimelineStatusChanged}, types)

	s.Require().Equal(http.StatusOK, s.call(http.MethodDelete, path, manager, nil, nil))
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, path, manager, nil, nil))

	s.drainOutbox()
	s.Equal([]string{
		domain.EventOrderPlaced,
		domain.EventOrderUpdated,
		domain.EventOrderUpdated,
		domain.EventOrderDeleted,
	}, s.publisher.eventsFor(strconv.FormatInt(placed.ID, 10)))
}

func (s *OrderLifecycleTestSuite) TestIdempotentPlacementPublishesOnce() {
	_, manager := s.newUser("manager", domain.GroupManager)
	_, customer := s.newUser("customer")

	var item menuItem
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/menu-items", manager,
		map[string]any{"title": "Greek Salad " + uuid.NewString()[:6], "price": "12.50", "inventory": 5}, &item))
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/cart/menu-items", customer,
		map[string]any{"menuitem_id": item.ID, "quantity": 1}, nil))

	key := "integration-" + uuid.NewString()
	var first, second order
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/orders", customer, nil, &first, "Idempotency-Key", key))
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/api/orders", customer, nil, &second, "Idempotency-Key", key))
	s.Equal(first.ID, second.ID)

	s.Equal(http.StatusBadRequest, s.call(http.MethodPost, "/api/orders", customer, nil, nil),
		"без ключа повторное оформление пустой корзины отклоняется")

	s.drainOutbox()
	s.Equal([]string{domain.EventOrderPlaced}, s.publisher.eventsFor(strconv.FormatInt(first.ID, 10)))
}
