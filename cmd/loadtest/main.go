// Command loadtest гоняет сценарии корзины и оформления заказа против HTTP API Little Lemon.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const idempotencyHeader = "Idempotency-Key"

type loadMode string

const (
	modeBrowse loadMode = "browse"
	modePlace  loadMode = "place"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	tokens      []string
	menuItemID  int64
	quantity    int
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg           config
		modeValue     string
		timeoutValue  string
		durationValue string
		tokensValue   string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8000", "API base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	fs.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modePlace), "load mode: browse | place")
	fs.StringVar(&tokensValue, "tokens", "", "comma-separated bearer tokens of customers (see cmd/usertool)")
	fs.Int64Var(&cfg.menuItemID, "menuitem-id", 1, "menu item added to the cart in place mode")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity added to the cart in place mode")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	cfg.tokens = parseTokens(tokensValue)

	if cfg.baseURL == "" {
		return cfg, errors.New("url is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if len(cfg.tokens) == 0 {
		return cfg, errors.New("at least one token is required")
	}
	if cfg.menuItemID <= 0 {
		return cfg, errors.New("menuitem-id must be > 0")
	}
	if cfg.quantity <= 0 {
		return cfg, errors.New("quantity must be > 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeBrowse:
		return modeBrowse, nil
	case modePlace:
		return modePlace, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func parseTokens(raw string) []string {
	chunks := strings.Split(raw, ",")
	tokens := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		token := strings.TrimSpace(chunk)
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// runner выполняет сценарии. Корзина у пользователя одна, поэтому сценарии
// с одним токеном сериализуются.
type runner struct {
	cfg    config
	client *http.Client
	col    *collector
	runID  string
	locks  []sync.Mutex
}

func newRunner(cfg config, client *http.Client, runID string) *runner {
	return &runner{
		cfg:    cfg,
		client: client,
		col:    newCollector(),
		runID:  runID,
		locks:  make([]sync.Mutex, len(cfg.tokens)),
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	startedAt := time.Now()
	r := newRunner(cfg, &http.Client{}, fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid()))

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := r.runScenario(id); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := r.col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func (r *runner) runScenario(index int) error {
	scenarioStart := time.Now()
	scenarioStatus := http.StatusOK
	defer func() {
		r.col.record("scenario", time.Since(scenarioStart), scenarioStatus)
	}()

	slot := index % len(r.cfg.tokens)
	token := r.cfg.tokens[slot]

	if r.cfg.mode == modeBrowse {
		status, err := r.call("ListMenuItems", http.MethodGet, "/api/menu-items?perpage=10", token, "", nil)
		scenarioStatus = status
		return err
	}

	r.locks[slot].Lock()
	defer r.locks[slot].Unlock()

	body := map[string]any{"menuitem_id": r.cfg.menuItemID, "quantity": r.cfg.quantity}
	if status, err := r.call("AddToCart", http.MethodPost, "/api/cart/menu-items", token, "", body); err != nil {
		scenarioStatus = status
		return err
	}

	key := fmt.Sprintf("lt-place-%s-%d", r.runID, index)
	status, err := r.call("PlaceOrder", http.MethodPost, "/api/orders", token, key, nil)
	if err != nil {
		scenarioStatus = status
		return err
	}
	return nil
}

// call выполняет один запрос и возвращает HTTP-статус; не-2xx считается ошибкой.
func (r *runner) call(method, verb, path, token, idempotencyKey string, body any) (int, error) {
	start := time.Now()
	status, err := r.do(verb, path, token, idempotencyKey, body)
	r.col.record(method, time.Since(start), status)
	return status, err
}

func (r *runner) do(verb, path, token, idempotencyKey string, body any) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, verb, r.cfg.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return resp.StatusCode, fmt.Errorf("%s %s: unexpected status %d", verb, path, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
