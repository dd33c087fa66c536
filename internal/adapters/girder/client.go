package girder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/pkg/metrics"
	"github.com/samirrijal/geofacet/internal/pkg/telemetry"
)

const breakerName = "girder-api"

// Config points the client at a Girder instance.
type Config struct {
	APIRoot            string
	WebRoot            string
	FilterInfoEndpoint string
	Token              string
	Timeout            time.Duration
}

// Client implements ports.AssetAPI against the Girder REST API.
type Client struct {
	apiRoot    string
	webRoot    string
	filterInfo string
	token      string
	timeout    time.Duration

	http   *fasthttp.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// StatusError is a non-2xx answer from the asset API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == fasthttp.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// New creates a Girder client wrapped in a circuit breaker.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				slog.Warn("opening asset api circuit", "failures", counts.TotalFailures, "failure_rate", ratio*100)
				return true
			}
			return false
		},
		// Client errors and cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.Code < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change", "name", name, "from", stateToString(from), "to", stateToString(to))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &Client{
		apiRoot:    strings.TrimRight(cfg.APIRoot, "/"),
		webRoot:    strings.TrimRight(cfg.WebRoot, "/"),
		filterInfo: cfg.FilterInfoEndpoint,
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		http: &fasthttp.Client{
			Name:            "geofacet",
			MaxConnsPerHost: 64,
			ReadTimeout:     cfg.Timeout,
			WriteTimeout:    cfg.Timeout,
		},
		cb:     cb,
		tracer: telemetry.Tracer("github.com/samirrijal/geofacet/internal/adapters/girder"),
	}
}

// SearchGeospatial runs GET item/geospatial.
func (c *Client) SearchGeospatial(ctx context.Context, query string, limit, offset int) ([]domain.Item, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := c.do(ctx, "search_geospatial", fasthttp.MethodGet, c.apiRoot+"/item/geospatial?"+params.Encode(), nil,
		attribute.String(telemetry.AttrQuery, query),
		attribute.Int(telemetry.AttrLimit, limit),
		attribute.Int(telemetry.AttrOffset, offset),
	)
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode geospatial search: %w", err)
	}
	return items, nil
}

// Distinct asks the filter info endpoint for the distinct values of field.
func (c *Client) Distinct(ctx context.Context, field string) ([]any, error) {
	params := url.Values{}
	params.Add("field_names[]", field)

	sep := "?"
	if strings.Contains(c.filterInfo, "?") {
		sep = "&"
	}
	body, err := c.do(ctx, "distinct", fasthttp.MethodGet, c.filterInfo+sep+params.Encode(), nil,
		attribute.String(telemetry.AttrField, field),
	)
	if err != nil {
		return nil, err
	}

	var resp map[string][]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode distinct %s: %w", field, err)
	}
	values := resp[field]
	if values == nil {
		values = []any{}
	}
	return values, nil
}

// GetCollection runs GET collection/:id.
func (c *Client) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	body, err := c.do(ctx, "get_collection", fasthttp.MethodGet, c.apiRoot+"/collection/"+url.PathEscape(id), nil,
		attribute.String(telemetry.AttrItemID, id),
	)
	if err != nil {
		return nil, err
	}
	var col domain.Collection
	if err := json.Unmarshal(body, &col); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return &col, nil
}

// GetItem runs GET item/:id.
func (c *Client) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	body, err := c.do(ctx, "get_item", fasthttp.MethodGet, c.apiRoot+"/item/"+url.PathEscape(id), nil,
		attribute.String(telemetry.AttrItemID, id),
	)
	if err != nil {
		return nil, err
	}
	var item domain.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return &item, nil
}

// ListItemFiles runs GET item/:id/files.
func (c *Client) ListItemFiles(ctx context.Context, itemID string) ([]domain.File, error) {
	body, err := c.do(ctx, "list_item_files", fasthttp.MethodGet, c.apiRoot+"/item/"+url.PathEscape(itemID)+"/files", nil,
		attribute.String(telemetry.AttrItemID, itemID),
	)
	if err != nil {
		return nil, err
	}
	var files []domain.File
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("decode item files: %w", err)
	}
	return files, nil
}

// CreateThumbnail runs POST thumbnail, attaching the result to the item.
func (c *Client) CreateThumbnail(ctx context.Context, fileID, itemID string, width, height int) error {
	form := url.Values{}
	form.Set("fileId", fileID)
	form.Set("width", strconv.Itoa(width))
	form.Set("height", strconv.Itoa(height))
	form.Set("attachToId", itemID)
	form.Set("attachToType", "item")

	body, err := c.do(ctx, "create_thumbnail", fasthttp.MethodPost, c.apiRoot+"/thumbnail", form,
		attribute.String(telemetry.AttrItemID, itemID),
	)
	if err != nil {
		return err
	}

	var job domain.ThumbnailJob
	if err := json.Unmarshal(body, &job); err == nil {
		slog.Debug("thumbnail job created", "item", itemID, "job", job.ID)
	}
	return nil
}

// DownloadURL builds a resource/download link for the items.
func (c *Client) DownloadURL(itemIDs []string) string {
	if itemIDs == nil {
		itemIDs = []string{}
	}
	resources, _ := json.Marshal(map[string][]string{"item": itemIDs})
	return c.apiRoot + "/resource/download?resources=" + url.QueryEscape(string(resources))
}

// ItemURL builds the web UI link for an item.
func (c *Client) ItemURL(itemID string) string {
	return c.webRoot + "/#item/" + itemID
}

// FileDownloadURL builds the download link of a file.
func (c *Client) FileDownloadURL(fileID string) string {
	return c.apiRoot + "/file/" + fileID + "/download"
}

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", fasthttp.MethodGet, c.apiRoot+"/system/version", nil)
	return err
}

// do runs one call through the circuit breaker inside a span.
func (c *Client) do(ctx context.Context, op, method, uri string, form url.Values, attrs ...attribute.KeyValue) ([]byte, error) {
	start := time.Now()
	attrs = append(attrs, attribute.String(telemetry.AttrOperation, op))
	ctx, span := c.tracer.Start(ctx, "girder."+op, trace.WithAttributes(attrs...))
	defer span.End()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, uri, form)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		err = fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	}
	metrics.ObserveAssetAPI(op, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, uri string, form url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Girder-Token", c.token)
	}
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form.Encode())
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, op, err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.AttrStatus, resp.StatusCode()))
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &StatusError{Op: op, Code: code, Body: truncate(string(resp.Body()), 256)}
	}
	return append([]byte(nil), resp.Body()...), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
