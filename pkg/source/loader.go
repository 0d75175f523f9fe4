package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/serrors"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// DefaultURL is the Civil Protection Department per-province daily dataset.
const DefaultURL = "https://raw.githubusercontent.com/pcm-dpc/COVID-19/refs/heads/master/dati-json/dpc-covid19-ita-province.json"

// Options configure how datasets are fetched and normalized.
type Options struct {
	// Timeout bounds a whole load, network or file I/O included. Zero means no bound.
	Timeout time.Duration
	// UserAgent is sent with remote requests.
	UserAgent string
	// MaxPayloadBytes caps the payload size. Zero means no cap.
	MaxPayloadBytes int64
	// Schema names the payload fields to read.
	Schema Schema
	// Policy is the malformed-element policy.
	Policy Policy
}

// Deps are the collaborators of the loader.
type Deps struct {
	// HTTPClient performs remote fetches. Defaults to NewHTTPClient(Options.Timeout).
	HTTPClient *http.Client
	// Clock stamps Dataset.LoadedAt. Defaults to the system clock.
	Clock clock.Clock
	// Metrics is optional.
	Metrics *metrics.Collectors
}

// loader is the concrete Loader.
type loader struct {
	options    Options
	deps       Deps
	normalizer *Normalizer
}

// NewHTTPClient returns an http.Client whose dial, TLS handshake and overall
// request time are bounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{Timeout: timeout, Transport: tr}
}

// New creates a Loader.
func New(deps Deps, options Options) Loader {
	if deps.HTTPClient == nil {
		deps.HTTPClient = NewHTTPClient(options.Timeout)
	}
	if deps.Clock == nil {
		deps.Clock = clock.System(nil)
	}

	return &loader{
		options:    options,
		deps:       deps,
		normalizer: NewNormalizer(options.Schema, options.Policy),
	}
}

// Load fetches src, normalizes it and returns the resulting dataset.
//
// Errors carry one of the serrors kinds ErrNetwork, ErrFile, ErrParse or
// ErrValidation.
func (l *loader) Load(ctx context.Context, src domain.Source) (*domain.Dataset, error) {
	if l.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.options.Timeout)
		defer cancel()
	}
	ctx = logger.WithFields(ctx, zap.Stringer("source", src))

	start := time.Now()
	ds, err := l.load(ctx, src)
	l.deps.Metrics.DatasetLoad(string(src.Kind), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func (l *loader) load(ctx context.Context, src domain.Source) (*domain.Dataset, error) {
	var (
		payload []byte
		err     error
	)
	switch src.Kind {
	case domain.SourceRemote:
		payload, err = l.fetch(ctx, src.Location)
	case domain.SourceFile:
		payload, err = l.readFile(ctx, src.Location)
	default:
		return nil, serrors.With(serrors.ErrValidation, "unknown source kind %q", src.Kind)
	}
	if err != nil {
		return nil, err
	}

	res, err := l.normalizer.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("could not normalize %s: %w", src, err)
	}
	if res.Dropped > 0 {
		logger.Warn(ctx, "dropped malformed records",
			zap.Int("dropped", res.Dropped),
			zap.Any("reasons", res.Reasons))
		l.deps.Metrics.Dropped(res.Reasons)
	}

	ds := &domain.Dataset{
		Source:   src,
		Records:  res.Records,
		LoadedAt: l.deps.Clock.Now(),
		Checksum: xxhash.Sum64(payload),
		Dropped:  res.Dropped,
	}
	logger.Info(ctx, "dataset loaded",
		zap.Int("records", len(ds.Records)),
		zap.Int("dropped", ds.Dropped),
		zap.Uint64("checksum", ds.Checksum))

	return ds, nil
}

// fetch downloads the payload at URL.
func (l *loader) fetch(ctx context.Context, URL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrNetwork, err, "could not create request")
	}
	req.Header.Set("Accept", "application/json")
	if l.options.UserAgent != "" {
		req.Header.Set("User-Agent", l.options.UserAgent)
	}

	resp, err := l.deps.HTTPClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrNetwork, err, "could not fetch dataset")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, serrors.With(serrors.ErrNetwork, "unable to retrieve data, status code %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := io.ReadAll(l.limit(resp.Body))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrNetwork, err, "could not read response body")
	}

	return l.checkSize(b, serrors.ErrNetwork)
}

// readFile reads the payload at path, abandoning the read once ctx is done.
func (l *loader) readFile(ctx context.Context, path string) ([]byte, error) {
	type result struct {
		b   []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			ch <- result{err: err}

			return
		}
		defer func() {
			_ = f.Close()
		}()
		b, err := io.ReadAll(l.limit(f))
		ch <- result{b: b, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, serrors.Wrap(serrors.ErrFile, ctx.Err(), "timed out reading %s", path)
	case res := <-ch:
		if errors.Is(res.err, fs.ErrNotExist) {
			return nil, serrors.Wrap(serrors.ErrFile, res.err, "file not found: %s", path)
		}
		if res.err != nil {
			return nil, serrors.Wrap(serrors.ErrFile, res.err, "could not read %s", path)
		}

		return l.checkSize(res.b, serrors.ErrFile)
	}
}

// limit reads at most one byte past MaxPayloadBytes so oversize payloads can be detected.
func (l *loader) limit(r io.Reader) io.Reader {
	if l.options.MaxPayloadBytes <= 0 {
		return r
	}

	return io.LimitReader(r, l.options.MaxPayloadBytes+1)
}

func (l *loader) checkSize(b []byte, k serrors.Kind) ([]byte, error) {
	if l.options.MaxPayloadBytes > 0 && int64(len(b)) > l.options.MaxPayloadBytes {
		return nil, serrors.With(k, "payload exceeds %d bytes", l.options.MaxPayloadBytes)
	}

	return b, nil
}
