// Package v1handler implements the HTTP handlers of the v1 API.
package v1handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"covidanalyzer/internal/analyzer"
	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/ratelimit"
	"covidanalyzer/pkg/serrors"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Deps groups the collaborators of the handlers.
type Deps struct {
	Analyzer analyzer.Analyzer
	Limiter  ratelimit.Limiter
	Clock    clock.Clock
	// Meter creates the request instruments. A no-op meter is used when nil.
	Meter metric.Meter
}

// Options configure request handling.
type Options struct {
	// TrustForwardedFor identifies clients by proxy headers instead of the
	// connection address.
	TrustForwardedFor bool
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{TrustForwardedFor: cfg.HTTP.TrustForwardedFor}
}

type Handler struct {
	deps    Deps
	options Options

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func New(deps Deps, options Options) (*Handler, error) {
	if deps.Clock == nil {
		deps.Clock = clock.System(time.Local)
	}
	if deps.Meter == nil {
		deps.Meter = noop.NewMeterProvider().Meter("")
	}

	requests, err := deps.Meter.Int64Counter("covid_data.requests",
		metric.WithDescription("Handled covid data requests by status code"))
	if err != nil {
		return nil, fmt.Errorf("could not create requests counter: %w", err)
	}
	duration, err := deps.Meter.Float64Histogram("covid_data.duration",
		metric.WithDescription("Covid data request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &Handler{
		deps:     deps,
		options:  options,
		requests: requests,
		duration: duration,
	}, nil
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

// Encode writes the response as JSON.
func (r ErrorResponse) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(r.Code) })
		e.Field("error", func(e *jx.Encoder) { e.Str(r.Message) })
	})
}

var kindStatus = map[serrors.Kind]int{
	serrors.ErrBadRequest:       http.StatusBadRequest,
	serrors.ErrValidation:       http.StatusBadRequest,
	serrors.ErrMethodNotAllowed: http.StatusMethodNotAllowed,
	serrors.ErrRateLimited:      http.StatusTooManyRequests,
	serrors.ErrUpstream:         http.StatusBadGateway,
}

var kindMessage = map[serrors.Kind]string{
	serrors.ErrBadRequest:       "bad request",
	serrors.ErrValidation:       "invalid request",
	serrors.ErrMethodNotAllowed: "method not allowed",
	serrors.ErrRateLimited:      "rate limit exceeded",
	serrors.ErrUpstream:         "upstream data source unavailable",
	serrors.ErrInternal:         "internal error",
}

// NewError maps err to a status code and a response body by its semantic
// kind. Client errors carry the whole error text. Server errors only carry
// the message attached to the outermost semantic error so that causes stay
// in the logs.
func (h *Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		kind, status = serrors.ErrInternal, http.StatusInternalServerError
	}

	msg := kindMessage[kind]
	if status < http.StatusInternalServerError {
		if text := err.Error(); text != kind.Error() {
			msg = text
		}
	} else {
		var se *serrors.Error
		if status != http.StatusInternalServerError && errors.As(err, &se) && se.Message() != "" {
			msg = se.Message()
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err), zap.Int("status_code", status))
	} else {
		logger.Debug(ctx, "request rejected", zap.Error(err), zap.Int("status_code", status))
	}

	return &ErrorStatusCode{
		StatusCode: status,
		Response:   ErrorResponse{Code: kind.Error(), Message: msg},
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) int {
	res := h.NewError(ctx, err)

	var e jx.Encoder
	res.Response.Encode(&e)
	writeJSON(w, res.StatusCode, e.Bytes())

	return res.StatusCode
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
