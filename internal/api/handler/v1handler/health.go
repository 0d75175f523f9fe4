package v1handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// HealthPath is the route of Health.
const HealthPath = "/healthz"

// Health reports liveness together with the dataset currently cached, if any.
// It never triggers a load.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	ds := h.deps.Analyzer.Loaded()

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
		if ds == nil {
			return
		}
		e.Field("dataset", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("source", func(e *jx.Encoder) { e.Str(ds.Source.String()) })
				e.Field("loaded_at", func(e *jx.Encoder) { e.Str(ds.LoadedAt.Format(time.RFC3339)) })
				e.Field("records", func(e *jx.Encoder) { e.Int(len(ds.Records)) })
				e.Field("checksum", func(e *jx.Encoder) { e.Str(fmt.Sprintf("%016x", ds.Checksum)) })
			})
		})
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}
