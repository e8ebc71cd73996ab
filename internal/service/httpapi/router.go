// Package httpapi публикует операции каталога, корзины, заказов и групп через HTTP/JSON на gin.
package httpapi

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/littlelemon/internal/service/cart"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/catalog"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/membership"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/ordering"
)

// CallerResolver определяет вызывающего по значению заголовка Authorization.
type CallerResolver interface {
	Resolve(ctx context.Context, authorization string) (domain.Caller, error)
}

// Dependencies — сервисы, которые публикует роутер.
type Dependencies struct {
	Catalog     *catalog.Service
	Cart        *cartsvc.Service
	Orders      *ordering.Service
	Membership  *membership.Service
	Resolver    CallerResolver
	Idempotency domain.IdempotencyRepository
	Metrics     *metrics.OrderMetrics
	Logger      *log.Entry
}

// Config — настройки HTTP-слоя.
type Config struct {
	// CORSOrigins — разрешённые origin; пусто или "*" разрешает все.
	CORSOrigins []string
}

type handlers struct {
	catalog     *catalog.Service
	cart        *cartsvc.Service
	orders      *ordering.Service
	membership  *membership.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
	now         func() time.Time
}

var registerTagNameOnce sync.Once

// NewRouter собирает gin.Engine со всеми маршрутами /api.
func NewRouter(deps Dependencies, cfg Config) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	useJSONFieldNames()

	h := &handlers{
		catalog:     deps.Catalog,
		cart:        deps.Cart,
		orders:      deps.Orders,
		membership:  deps.Membership,
		idempotency: deps.Idempotency,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(
		requestIDMiddleware(),
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		metricsMiddleware(deps.Metrics),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	api := r.Group("/api", authMiddleware(deps.Resolver, logger))

	api.GET("/menu-items", h.listMenuItems)
	api.POST("/menu-items", h.createMenuItem)
	api.GET("/menu-items/:id", h.getMenuItem)
	api.PUT("/menu-items/:id", h.replaceMenuItem)
	api.PATCH("/menu-items/:id", h.patchMenuItem)
	api.DELETE("/menu-items/:id", h.deleteMenuItem)

	api.GET("/groups/:group/users", h.listMembers)
	api.POST("/groups/:group/users", h.addMember)
	api.DELETE("/groups/:group/users/:user_id", h.removeMember)

	api.GET("/cart/menu-items", h.viewCart)
	api.POST("/cart/menu-items", h.addToCart)
	api.DELETE("/cart/menu-items", h.clearCart)

	api.GET("/orders", h.listOrders)
	api.POST("/orders", h.placeOrder)
	api.GET("/orders/:id", h.getOrder)
	api.PUT("/orders/:id", h.replaceOrder)
	api.PATCH("/orders/:id", h.patchOrder)
	api.DELETE("/orders/:id", h.deleteOrder)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, logger, domain.ErrNotFound)
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", idempotencyKeyHeader, requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader, idempotencyReplayedHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// useJSONFieldNames заставляет validator называть поля так же, как в JSON.
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
