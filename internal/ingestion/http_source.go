package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"hifi-market-lab/internal/domain"
)

const defaultRequestTimeout = 5 * time.Second

// HTTPSourceOptions configures an HTTPSource.
type HTTPSourceOptions struct {
	Name     string
	Endpoint string // base URL of the listings API

	// RequestsPerSec throttles outbound calls. Zero means unlimited.
	RequestsPerSec float64

	// Client overrides the HTTP client. Nil gets a 5s-timeout default.
	Client *http.Client

	Logger *logrus.Logger
}

// HTTPSource pulls listings from a marketplace's JSON API. Requests are
// rate limited per source and retried with backoff; marketplaces
// throttle aggressively and fail transiently.
type HTTPSource struct {
	name     string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	log      *logrus.Entry
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(opts HTTPSourceOptions) *HTTPSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPSource{
		name:     opts.Name,
		endpoint: opts.Endpoint,
		client:   client,
		limiter:  limiter,
		log:      logger.WithField("source", opts.Name),
	}
}

// Name identifies the source.
func (s *HTTPSource) Name() string { return s.name }

// Fetch pulls listings posted within [from, to] from the API.
func (s *HTTPSource) Fetch(ctx context.Context, from, to int64) ([]*domain.RawListing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rows []wireListing
	err := withRetry(ctx, s.log, "fetch listings", func() error {
		var err error
		rows, err = s.fetchOnce(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.name, err)
	}

	out := make([]*domain.RawListing, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain(s.name))
	}
	return out, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, from, to int64) ([]wireListing, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var rows []wireListing
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

// Verify interface compliance at compile time.
var _ Source = (*HTTPSource)(nil)
