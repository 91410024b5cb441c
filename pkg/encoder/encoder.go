package encoder

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Profile holds the named applicant attributes for one request.
// It is treated as read-only by the encoder.
type Profile map[string]any

// Vector is the ordered feature vector the classifier consumes.
type Vector []float64

// Encoder maps profiles onto the model's input schema.
type Encoder struct {
	schema Schema
	width  int
	lookup []map[string]int
}

// New creates an encoder for the given schema.
func New(schema Schema) (*Encoder, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder schema: %w", err)
	}

	e := &Encoder{
		schema: schema,
		width:  schema.Width(),
		lookup: make([]map[string]int, len(schema.Fields)),
	}

	for i, f := range schema.Fields {
		if f.Type != FieldTypeCategorical {
			continue
		}
		m := make(map[string]int, len(f.Categories))
		for j, c := range f.Categories {
			m[normalizeCategory(c)] = j
		}
		e.lookup[i] = m
	}

	return e, nil
}

// Width returns the vector length produced by Encode.
func (e *Encoder) Width() int {
	return e.width
}

// Fields returns the field names in schema order.
func (e *Encoder) Fields() []string {
	names := make([]string, len(e.schema.Fields))
	for i, f := range e.schema.Fields {
		names[i] = f.Name
	}
	return names
}

// Schema returns the schema the encoder was built with.
func (e *Encoder) Schema() Schema {
	return e.schema
}

// Encode converts the profile into a feature vector.
func (e *Encoder) Encode(p Profile) (Vector, error) {
	v := make(Vector, e.width)
	pos := 0

	for i, f := range e.schema.Fields {
		raw, ok := p[f.Name]
		if !ok || raw == nil {
			return nil, invalid(f.Name, "required field is missing")
		}

		switch f.Type {
		case FieldTypeNumeric:
			n, err := toFloat(raw)
			if err != nil {
				return nil, invalid(f.Name, "%v", err)
			}
			if f.Min != nil && n < *f.Min {
				return nil, invalid(f.Name, "value %v is below minimum %v", n, *f.Min)
			}
			if f.Max != nil && n > *f.Max {
				return nil, invalid(f.Name, "value %v is above maximum %v", n, *f.Max)
			}
			if f.Scale != nil {
				n = (n - f.Scale.Min) / (f.Scale.Max - f.Scale.Min)
			}
			v[pos] = n
		case FieldTypeCategorical:
			s, ok := raw.(string)
			if !ok {
				return nil, invalid(f.Name, "expected text value, got %T", raw)
			}
			k := normalizeCategory(s)
			if k == "" {
				return nil, invalid(f.Name, "required field is missing")
			}
			idx, known := e.lookup[i][k]
			if !known {
				idx = len(f.Categories)
			}
			v[pos+idx] = 1
		}

		pos += f.Width()
	}

	return v, nil
}

// CheckWidth verifies the encoder output matches the model input width.
func CheckWidth(e *Encoder, width int) error {
	if e.Width() != width {
		return &SchemaMismatchError{Expected: width, Actual: e.Width()}
	}
	return nil
}

// ParseProfile builds a profile from text values (query string, CLI flags),
// converting numeric fields according to the schema.
func (e *Encoder) ParseProfile(values map[string]string) (Profile, error) {
	p := make(Profile, len(values))
	for _, f := range e.schema.Fields {
		s, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Type == FieldTypeNumeric {
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, invalid(f.Name, "value %q is not a number", s)
			}
			p[f.Name] = n
			continue
		}
		p[f.Name] = s
	}
	return p, nil
}

func toFloat(raw any) (float64, error) {
	var n float64
	switch t := raw.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", t.String())
		}
		n = f
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("value %v is not finite", n)
	}
	return n, nil
}
