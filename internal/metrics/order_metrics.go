package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла корзин и заказов.
// Методы безопасны для nil-получателя: сервисы можно собирать без метрик.
type OrderMetrics struct {
	// Счётчики операций
	ordersPlaced    prometheus.Counter
	placementFailed *prometheus.CounterVec
	orderUpdates    *prometheus.CounterVec
	ordersDeleted   prometheus.Counter
	cartAdds        prometheus.Counter

	placementDuration prometheus.Histogram

	timelineEvents prometheus.Counter

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "littlelemon_orders_placed_total",
			Help: "Total number of orders placed from carts",
		}),
		placementFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "littlelemon_order_placement_failed_total",
			Help: "Total number of failed order placements grouped by reason",
		}, []string{"reason"}),
		orderUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "littlelemon_order_updates_total",
			Help: "Total number of applied order updates grouped by changed field",
		}, []string{"field"}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "littlelemon_orders_deleted_total",
			Help: "Total number of deleted orders",
		}),
		cartAdds: registerCounter(registerer, prometheus.CounterOpts{
			Name: "littlelemon_cart_adds_total",
			Help: "Total number of add-to-cart operations",
		}),
		placementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "littlelemon_order_placement_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "littlelemon_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "littlelemon_http_requests_total",
			Help: "Total number of HTTP requests grouped by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "littlelemon_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "littlelemon_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	return register(registerer, opts.Name, prometheus.Collector(prometheus.NewCounter(opts))).(prometheus.Counter)
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return register(registerer, opts.Name, prometheus.Collector(prometheus.NewCounterVec(opts, labels))).(*prometheus.CounterVec)
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	return register(registerer, opts.Name, prometheus.Collector(prometheus.NewGauge(opts))).(prometheus.Gauge)
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	return register(registerer, opts.Name, prometheus.Collector(prometheus.NewHistogram(opts))).(prometheus.Histogram)
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return register(registerer, opts.Name, prometheus.Collector(prometheus.NewHistogramVec(opts, labels))).(*prometheus.HistogramVec)
}

// register возвращает уже зарегистрированный коллектор того же типа, иначе паникует.
func register(registerer prometheus.Registerer, name string, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	existing := alreadyRegistered.ExistingCollector
	if fmt.Sprintf("%T", existing) != fmt.Sprintf("%T", collector) {
		panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
	}
	return existing
}

// RecordOrderPlaced учитывает успешное оформление.
func (m *OrderMetrics) RecordOrderPlaced(duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.placementDuration.Observe(duration.Seconds())
}

// RecordPlacementFailed учитывает неудачное оформление с причиной (empty_cart, error, ...).
func (m *OrderMetrics) RecordPlacementFailed(reason string) {
	if m == nil {
		return
	}
	m.placementFailed.WithLabelValues(reason).Inc()
}

// RecordOrderUpdate учитывает изменение поля заказа (status, delivery_crew).
func (m *OrderMetrics) RecordOrderUpdate(field string) {
	if m == nil {
		return
	}
	m.orderUpdates.WithLabelValues(field).Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
}

// RecordCartAdd увеличивает счётчик добавлений в корзину.
func (m *OrderMetrics) RecordCartAdd() {
	if m == nil {
		return
	}
	m.cartAdds.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// HTTPRequestStarted увеличивает число обслуживаемых запросов.
func (m *OrderMetrics) HTTPRequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// HTTPRequestFinished фиксирует завершённый запрос.
func (m *OrderMetrics) HTTPRequestFinished(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
