package v1handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"covidanalyzer/internal/api/handler/v1handler"
	"covidanalyzer/pkg/domain"

	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := map[string]struct {
		dataset *domain.Dataset
		want    string
	}{
		"nothing loaded": {want: `{"status":"ok"}`},
		"dataset cached": {
			dataset: &domain.Dataset{
				Source:   domain.FileSource("data.json"),
				LoadedAt: time.Date(2021, time.January, 2, 8, 0, 0, 0, time.UTC),
				Checksum: 0xbeef,
				Records:  make([]domain.RawRecord, 2),
			},
			want: `{"status":"ok","dataset":{"source":"file:data.json","loaded_at":"2021-01-02T08:00:00Z",` +
				`"records":2,"checksum":"000000000000beef"}}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, v1handler.Options{})
			f.analyzer.EXPECT().Loaded().Return(tt.dataset)

			rec := httptest.NewRecorder()
			f.handler.Health(rec, httptest.NewRequest(http.MethodGet, v1handler.HealthPath, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			require.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}
