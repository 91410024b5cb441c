package encoder

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 {
	return &v
}

func testSchema() Schema {
	return Schema{
		LookupVersion: "2024.1",
		Fields: []Field{
			{Name: "gpa", Type: FieldTypeNumeric, Min: ptr(0), Max: ptr(4), Scale: &Scale{Min: 0, Max: 4}},
			{Name: "test_score", Type: FieldTypeNumeric, Min: ptr(400), Max: ptr(1600), Scale: &Scale{Min: 400, Max: 1600}},
			{Name: "tier", Type: FieldTypeCategorical, Categories: []string{"top", "mid", "low"}},
		},
	}
}

func testEncoder(t *testing.T) *Encoder {
	t.Helper()
	e, err := New(testSchema())
	require.NoError(t, err)
	return e
}

func TestNew_Width(t *testing.T) {
	e := testEncoder(t)
	assert.Equal(t, 6, e.Width())
	assert.Equal(t, []string{"gpa", "test_score", "tier"}, e.Fields())
}

func TestNew_InvalidSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"empty", Schema{}},
		{"no name", Schema{Fields: []Field{{Type: FieldTypeNumeric}}}},
		{"duplicate", Schema{Fields: []Field{{Name: "a", Type: FieldTypeNumeric}, {Name: "a", Type: FieldTypeNumeric}}}},
		{"bad type", Schema{Fields: []Field{{Name: "a", Type: "date"}}}},
		{"min over max", Schema{Fields: []Field{{Name: "a", Type: FieldTypeNumeric, Min: ptr(2), Max: ptr(1)}}}},
		{"bad scale", Schema{Fields: []Field{{Name: "a", Type: FieldTypeNumeric, Scale: &Scale{Min: 1, Max: 1}}}}},
		{"no categories", Schema{Fields: []Field{{Name: "a", Type: FieldTypeCategorical}}}},
		{"duplicate category", Schema{Fields: []Field{{Name: "a", Type: FieldTypeCategorical, Categories: []string{"x", "X "}}}}},
		{"reserved category", Schema{Fields: []Field{{Name: "a", Type: FieldTypeCategorical, Categories: []string{"other"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.schema)
			assert.Error(t, err)
		})
	}
}

func TestEncode(t *testing.T) {
	e := testEncoder(t)

	v, err := e.Encode(Profile{"gpa": 3.8, "test_score": 1500, "tier": "top"})
	require.NoError(t, err)
	require.Len(t, v, e.Width())

	assert.InDelta(t, 0.95, v[0], 1e-9)
	assert.InDelta(t, 1100.0/1200.0, v[1], 1e-9)
	assert.Equal(t, []float64{1, 0, 0, 0}, []float64(v[2:]))
}

func TestEncode_Deterministic(t *testing.T) {
	e := testEncoder(t)
	p := Profile{"gpa": 3.1, "test_score": json.Number("1320"), "tier": "Mid"}

	v1, err := e.Encode(p)
	require.NoError(t, err)
	v2, err := e.Encode(p)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestEncode_UnknownCategoryUsesOtherBucket(t *testing.T) {
	e := testEncoder(t)

	v, err := e.Encode(Profile{"gpa": 2.0, "test_score": 1000, "tier": "unranked"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1}, []float64(v[2:]))
}

func TestEncode_CategoryIsCaseInsensitive(t *testing.T) {
	e := testEncoder(t)

	v, err := e.Encode(Profile{"gpa": 2.0, "test_score": 1000, "tier": "  LOW "})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0}, []float64(v[2:]))
}

func TestEncode_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		field   string
	}{
		{"missing gpa", Profile{"test_score": 1000, "tier": "top"}, "gpa"},
		{"nil gpa", Profile{"gpa": nil, "test_score": 1000, "tier": "top"}, "gpa"},
		{"gpa above max", Profile{"gpa": 4.5, "test_score": 1000, "tier": "top"}, "gpa"},
		{"gpa below min", Profile{"gpa": -0.1, "test_score": 1000, "tier": "top"}, "gpa"},
		{"gpa nan", Profile{"gpa": math.NaN(), "test_score": 1000, "tier": "top"}, "gpa"},
		{"gpa text", Profile{"gpa": "3.5", "test_score": 1000, "tier": "top"}, "gpa"},
		{"score too high", Profile{"gpa": 3.0, "test_score": 1700, "tier": "top"}, "test_score"},
		{"tier missing", Profile{"gpa": 3.0, "test_score": 1000}, "tier"},
		{"tier blank", Profile{"gpa": 3.0, "test_score": 1000, "tier": "  "}, "tier"},
		{"tier number", Profile{"gpa": 3.0, "test_score": 1000, "tier": 1}, "tier"},
	}

	e := testEncoder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Encode(tt.profile)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestEncode_DoesNotMutateProfile(t *testing.T) {
	e := testEncoder(t)
	p := Profile{"gpa": 3.0, "test_score": 1000, "tier": "top", "extra": "ignored"}

	_, err := e.Encode(p)
	require.NoError(t, err)
	assert.Equal(t, Profile{"gpa": 3.0, "test_score": 1000, "tier": "top", "extra": "ignored"}, p)
}

func TestCheckWidth(t *testing.T) {
	e := testEncoder(t)
	assert.NoError(t, CheckWidth(e, 6))

	err := CheckWidth(e, 7)
	var sm *SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, 7, sm.Expected)
	assert.Equal(t, 6, sm.Actual)
}

func TestParseProfile(t *testing.T) {
	e := testEncoder(t)

	p, err := e.ParseProfile(map[string]string{"gpa": "3.8", "test_score": " 1500 ", "tier": "top", "unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, Profile{"gpa": 3.8, "test_score": 1500.0, "tier": "top"}, p)

	_, err = e.ParseProfile(map[string]string{"gpa": "high"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "gpa", ve.Field)
}
