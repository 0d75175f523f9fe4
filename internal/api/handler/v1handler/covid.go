package v1handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"covidanalyzer/internal/analyzer"
	"covidanalyzer/pkg/controller"
	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/serrors"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CovidDataPath is the route of CovidData.
const CovidDataPath = "/covid-data"

// statusClientClosed is recorded for requests whose caller went away.
const statusClientClosed = 499

// CovidData serves GET /covid-data?date_start=YYYY-MM-DD&date_end=YYYY-MM-DD.
//
// Missing bounds default to today. The window is validated before the rate
// limiter is consulted, so malformed requests do not count against a client,
// and a denied request never reaches the analyzer.
func (h *Handler) CovidData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	status := http.StatusOK
	defer func() {
		attrs := metric.WithAttributes(attribute.Int("http.status_code", status))
		h.requests.Add(ctx, 1, attrs)
		h.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		status = h.writeError(ctx, w, serrors.With(serrors.ErrMethodNotAllowed, "method %s not allowed", r.Method))

		return
	}

	q, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		status = h.writeError(ctx, w, serrors.Wrap(serrors.ErrBadRequest, err, "malformed query string"))
		return
	}
	today := domain.DateOf(h.deps.Clock.Now())
	window, err := domain.ParseDateWindow(q.Get("date_start"), q.Get("date_end"), today)
	if err != nil {
		status = h.writeError(ctx, w, err)
		return
	}

	client := controller.GetClientIP(r, h.options.TrustForwardedFor)
	if d := h.deps.Limiter.Allow(ctx, client); !d.Allowed {
		secs := retryAfterSeconds(d.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		logger.Info(ctx, "rate limit exceeded", zap.String("client", client), zap.Duration("retry_after", d.RetryAfter))
		status = h.writeError(ctx, w, serrors.With(serrors.ErrRateLimited, "rate limit exceeded, retry in %d seconds", secs))

		return
	}

	report, err := h.deps.Analyzer.RegionTotals(ctx, window)
	switch {
	case err != nil && ctx.Err() != nil:
		status = statusClientClosed
		logger.Debug(ctx, "request abandoned while waiting for the dataset", zap.Error(err))

		return
	case err != nil:
		status = h.writeError(ctx, w, err)
		return
	}

	var e jx.Encoder
	encodeReport(&e, report)
	writeJSON(w, status, e.Bytes())
}

func encodeReport(e *jx.Encoder, report *analyzer.Report) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("regions", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, r := range report.Regions {
					e.Obj(func(e *jx.Encoder) {
						e.Field("region", func(e *jx.Encoder) { e.Str(r.Region) })
						e.Field("total_cases", func(e *jx.Encoder) { e.Int64(r.TotalCases) })
					})
				}
			})
		})
	})
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
