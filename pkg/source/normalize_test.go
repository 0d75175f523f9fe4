package source_test

import (
	"testing"

	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/serrors"
	"covidanalyzer/pkg/source"

	"github.com/stretchr/testify/require"
)

const fivePlusOneMalformed = `[
	{"data": "2021-01-01T17:00:00", "stato": "ITA", "codice_regione": 3, "denominazione_regione": "Lombardia", "totale_casi": 100},
	{"data": "2021-01-02T17:00:00", "stato": "ITA", "codice_regione": 3, "denominazione_regione": "Lombardia", "totale_casi": 50},
	{"data": "2021-01-01T17:00:00", "stato": "ITA", "codice_regione": 5, "denominazione_regione": "Veneto", "totale_casi": 30},
	{"data": "2021-01-02T17:00:00", "stato": "ITA", "denominazione_regione": "Veneto", "totale_casi": 12},
	{"data": "2021-01-02T17:00:00", "stato": "ITA", "codice_regione": "09", "denominazione_regione": "Toscana", "totale_casi": "-4"}
]`

func TestNormalize_DropsRecordMissingRegionCode(t *testing.T) {
	n := source.NewNormalizer(source.DefaultSchema(), source.PolicySkip)

	res, err := n.Normalize([]byte(fivePlusOneMalformed))
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	require.Equal(t, 1, res.Dropped)
	require.Equal(t, map[string]int{"codice_regione": 1}, res.Reasons)

	require.Equal(t, domain.RawRecord{
		Date:       domain.NewDate(2021, 1, 1),
		RegionCode: "3",
		RegionName: "Lombardia",
		NewCases:   100,
	}, res.Records[0])
	require.Equal(t, "09", res.Records[3].RegionCode)
	require.Equal(t, int64(-4), res.Records[3].NewCases)
}

func TestNormalize_StrictFailsOnFirstMalformed(t *testing.T) {
	n := source.NewNormalizer(source.DefaultSchema(), source.PolicyStrict)

	_, err := n.Normalize([]byte(fivePlusOneMalformed))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrValidation)

	var fe *source.FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 3, fe.Index)
	require.Equal(t, "codice_regione", fe.Field)
}

func TestNormalize_FieldRules(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "unparseable date",
			payload: `[{"data": "yesterday", "codice_regione": 1, "totale_casi": 1}]`,
			field:   "data",
		},
		{
			name:    "date of the wrong type",
			payload: `[{"data": 20210101, "codice_regione": 1, "totale_casi": 1}]`,
			field:   "data",
		},
		{
			name:    "missing date",
			payload: `[{"codice_regione": 1, "totale_casi": 1}]`,
			field:   "data",
		},
		{
			name:    "empty region code",
			payload: `[{"data": "2021-01-01", "codice_regione": "  ", "totale_casi": 1}]`,
			field:   "codice_regione",
		},
		{
			name:    "null region code",
			payload: `[{"data": "2021-01-01", "codice_regione": null, "totale_casi": 1}]`,
			field:   "codice_regione",
		},
		{
			name:    "fractional cases",
			payload: `[{"data": "2021-01-01", "codice_regione": 1, "totale_casi": 1.5}]`,
			field:   "totale_casi",
		},
		{
			name:    "non numeric cases",
			payload: `[{"data": "2021-01-01", "codice_regione": 1, "totale_casi": "many"}]`,
			field:   "totale_casi",
		},
		{
			name:    "missing cases",
			payload: `[{"data": "2021-01-01", "codice_regione": 1}]`,
			field:   "totale_casi",
		},
		{
			name:    "element is not an object",
			payload: `[42]`,
			field:   "element",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := source.NewNormalizer(source.DefaultSchema(), source.PolicySkip).Normalize([]byte(tc.payload))
			require.ErrorIs(t, err, serrors.ErrValidation, "a payload without valid records must fail")

			_, err = source.NewNormalizer(source.DefaultSchema(), source.PolicyStrict).Normalize([]byte(tc.payload))
			var fe *source.FieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestNormalize_NoValidRecords(t *testing.T) {
	n := source.NewNormalizer(source.DefaultSchema(), source.PolicySkip)

	_, err := n.Normalize([]byte(`[]`))
	require.ErrorIs(t, err, serrors.ErrValidation)
	require.Contains(t, err.Error(), "no valid records")
}

func TestNormalize_ParseErrors(t *testing.T) {
	payloads := map[string]string{
		"empty":        ``,
		"object":       `{"data": "2021-01-01"}`,
		"truncated":    `[{"data": "2021-01-01", "codice_regione": 1,`,
		"trailing":     `[{"data": "2021-01-01", "codice_regione": 1, "totale_casi": 1}] []`,
		"html":         `<html>not json</html>`,
		"broken value": `[{"data": "2021-01-01", "codice_regione": 1, "totale_casi": tru}]`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := source.NewNormalizer(source.DefaultSchema(), source.PolicySkip).Normalize([]byte(payload))
			require.Error(t, err)
			require.ErrorIs(t, err, serrors.ErrParse)
		})
	}
}

func TestNormalize_CustomSchemaAndNameFallback(t *testing.T) {
	n := source.NewNormalizer(source.Schema{
		DateField:       "date",
		RegionCodeField: "region_code",
		CasesField:      "new_cases",
	}, "")

	res, err := n.Normalize([]byte(`[
		{"date": "2021-03-04", "region_code": "LOM", "new_cases": 7, "extra": {"nested": [1, 2]}},
		{"date": "2021-03-04T00:00:00+01:00", "region_code": "VEN", "denominazione_regione": "Veneto", "new_cases": 2.0}
	]`))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Equal(t, "LOM", res.Records[0].RegionName, "name falls back to the code")
	require.Equal(t, "Veneto", res.Records[1].RegionName)
	require.Equal(t, int64(2), res.Records[1].NewCases)
	require.True(t, res.Records[1].Date.Equal(domain.NewDate(2021, 3, 4)))
}
