package source

import (
	"math"
	"strconv"
	"strings"

	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Policy decides what the normalizer does with a malformed element.
type Policy string

const (
	// PolicySkip drops malformed elements and counts them. Normalization
	// fails only when no valid record is left.
	PolicySkip Policy = "skip"
	// PolicyStrict fails on the first malformed element.
	PolicyStrict Policy = "strict"
)

// elementField is the reason key used when a payload element is not an object.
const elementField = "element"

// Schema names the payload fields the normalizer reads. Any other field is ignored.
type Schema struct {
	DateField       string
	RegionCodeField string
	RegionNameField string
	CasesField      string
}

// DefaultSchema returns the field names of the Civil Protection Department
// province and region datasets.
func DefaultSchema() Schema {
	return Schema{
		DateField:       "data",
		RegionCodeField: "codice_regione",
		RegionNameField: "denominazione_regione",
		CasesField:      "totale_casi",
	}
}

func (s Schema) withDefaults() Schema {
	def := DefaultSchema()
	if s.DateField == "" {
		s.DateField = def.DateField
	}
	if s.RegionCodeField == "" {
		s.RegionCodeField = def.RegionCodeField
	}
	if s.RegionNameField == "" {
		s.RegionNameField = def.RegionNameField
	}
	if s.CasesField == "" {
		s.CasesField = def.CasesField
	}

	return s
}

// FieldError explains why a single payload element was rejected.
type FieldError struct {
	// Index is the position of the element in the payload array.
	Index int
	// Field is the offending payload field, or "element" when the element
	// itself is not an object.
	Field string
	// Err is the failure reason.
	Err error
}

func (e *FieldError) Error() string {
	return "element " + strconv.Itoa(e.Index) + ": " + e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

// Result is the outcome of a successful normalization.
type Result struct {
	// Records are the valid records in payload order.
	Records []domain.RawRecord
	// Dropped is the number of rejected elements.
	Dropped int
	// Reasons counts rejected elements by the first field that failed.
	Reasons map[string]int
}

// Normalizer turns a raw JSON payload into typed records. It holds no state
// between calls and is safe for concurrent use.
type Normalizer struct {
	schema Schema
	policy Policy
}

// NewNormalizer returns a Normalizer reading schema's fields. Empty schema
// fields fall back to DefaultSchema and an unknown policy means PolicySkip.
func NewNormalizer(schema Schema, policy Policy) *Normalizer {
	if policy != PolicyStrict {
		policy = PolicySkip
	}

	return &Normalizer{schema: schema.withDefaults(), policy: policy}
}

// Normalize decodes payload, which must be a JSON array, into records.
//
// Errors:
//   - serrors.ErrParse when payload is not a well-formed JSON array
//   - serrors.ErrValidation when no valid record remains, or on the first
//     malformed element under PolicyStrict
func (n *Normalizer) Normalize(payload []byte) (Result, error) {
	d := jx.DecodeBytes(payload)
	if d.Next() != jx.Array {
		return Result{}, serrors.With(serrors.ErrParse, "payload is not a JSON array")
	}

	res := Result{Reasons: map[string]int{}}
	var strictErr error
	index := 0
	err := d.Arr(func(d *jx.Decoder) error {
		i := index
		index++

		rec, fieldErr, err := n.decodeRecord(d, i)
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
		if fieldErr == nil {
			res.Records = append(res.Records, rec)

			return nil
		}
		if n.policy == PolicyStrict {
			strictErr = serrors.Wrap(serrors.ErrValidation, fieldErr, "malformed record")

			return strictErr
		}
		res.Dropped++
		res.Reasons[fieldErr.Field]++

		return nil
	})
	if strictErr != nil {
		return Result{}, strictErr
	}
	if err != nil {
		return Result{}, serrors.Wrap(serrors.ErrParse, err, "could not decode payload")
	}
	if d.Next() != jx.Invalid {
		return Result{}, serrors.With(serrors.ErrParse, "unexpected data after payload array")
	}
	if len(res.Records) == 0 {
		return Result{}, serrors.With(serrors.ErrValidation, "no valid records")
	}

	return res, nil
}

// decodeRecord reads one array element. A non-nil error means the payload is
// not well-formed; a non-nil FieldError means the element is well-formed but
// does not satisfy the schema.
func (n *Normalizer) decodeRecord(d *jx.Decoder, index int) (domain.RawRecord, *FieldError, error) {
	var rec domain.RawRecord
	if d.Next() != jx.Object {
		if err := d.Skip(); err != nil {
			return rec, nil, err
		}

		return rec, &FieldError{Index: index, Field: elementField, Err: errors.New("not an object")}, nil
	}

	var fieldErr *FieldError
	reject := func(field string, err error) {
		if fieldErr == nil {
			fieldErr = &FieldError{Index: index, Field: field, Err: err}
		}
	}
	hasDate, hasCases := false, false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case n.schema.DateField:
			s, ok, err := readString(d)
			if err != nil {
				return err
			}
			if !ok {
				reject(key, errors.New("expected a string date"))

				return nil
			}
			date, perr := domain.ParseSourceDate(s)
			if perr != nil {
				reject(key, perr)

				return nil
			}
			rec.Date, hasDate = date, true
		case n.schema.RegionCodeField:
			code, ok, err := readCode(d)
			if err != nil {
				return err
			}
			if !ok {
				reject(key, errors.New("expected a string or integer region code"))

				return nil
			}
			rec.RegionCode = code
		case n.schema.RegionNameField:
			s, _, err := readString(d)
			if err != nil {
				return err
			}
			rec.RegionName = s
		case n.schema.CasesField:
			cases, ok, err := readInt(d)
			if err != nil {
				return err
			}
			if !ok {
				reject(key, errors.New("expected an integer case count"))

				return nil
			}
			rec.NewCases, hasCases = cases, true
		default:
			return d.Skip()
		}

		return nil
	})
	if err != nil {
		return rec, nil, err
	}

	switch {
	case fieldErr != nil:
	case !hasDate:
		reject(n.schema.DateField, errors.New("missing"))
	case rec.RegionCode == "":
		reject(n.schema.RegionCodeField, errors.New("missing"))
	case !hasCases:
		reject(n.schema.CasesField, errors.New("missing"))
	}
	if fieldErr != nil {
		return rec, fieldErr, nil
	}
	if rec.RegionName == "" {
		rec.RegionName = rec.RegionCode
	}

	return rec, nil, nil
}

// readString reads a string value. Any other value is consumed and reported
// with ok set to false.
func readString(d *jx.Decoder) (string, bool, error) {
	if d.Next() != jx.String {
		return "", false, d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return "", false, err
	}

	return strings.TrimSpace(s), true, nil
}

// readCode reads a region code given either as a string or as an integer.
func readCode(d *jx.Decoder) (string, bool, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return "", false, err
		}

		return strings.TrimSpace(s), true, nil
	case jx.Number:
		v, ok, err := readInt(d)
		if err != nil || !ok {
			return "", ok, err
		}

		return strconv.FormatInt(v, 10), true, nil
	default:
		return "", false, d.Skip()
	}
}

// readInt reads an integral number, an integral float or a numeric string.
// The value is always consumed; ok reports whether it was an integer.
func readInt(d *jx.Decoder) (int64, bool, error) {
	switch d.Next() {
	case jx.Number:
		f, err := d.Float64()
		if err != nil {
			return 0, false, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
			return 0, false, nil
		}

		return int64(f), true, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		v, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if perr != nil {
			return 0, false, nil
		}

		return v, true, nil
	default:
		return 0, false, d.Skip()
	}
}
