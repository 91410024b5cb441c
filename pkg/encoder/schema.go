package encoder

import (
	"errors"
	"fmt"
	"strings"
)

const (
	FieldTypeNumeric     = "numeric"
	FieldTypeCategorical = "categorical"

	// OtherBucket is the column unknown categories are encoded into.
	OtherBucket = "other"
)

// Scale is the min-max transform the model was trained with.
type Scale struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Field describes one applicant attribute the model expects.
type Field struct {
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Min        *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Scale      *Scale   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Width returns the number of vector columns the field occupies.
func (f Field) Width() int {
	if f.Type == FieldTypeCategorical {
		return len(f.Categories) + 1
	}
	return 1
}

// Schema is the ordered input schema shipped with the model artifact.
type Schema struct {
	LookupVersion string  `json:"lookup_version,omitempty" yaml:"lookup_version,omitempty"`
	Fields        []Field `json:"fields" yaml:"fields"`
}

// Width is the length of every vector produced for this schema.
func (s Schema) Width() int {
	w := 0
	for _, f := range s.Fields {
		w += f.Width()
	}
	return w
}

// Validate checks the schema is usable for encoding.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("schema has no fields")
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("field %s: duplicate name", name)
		}
		seen[name] = struct{}{}

		switch f.Type {
		case FieldTypeNumeric:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("field %s: min %v greater than max %v", name, *f.Min, *f.Max)
			}
			if f.Scale != nil && f.Scale.Max <= f.Scale.Min {
				return fmt.Errorf("field %s: invalid scale [%v, %v]", name, f.Scale.Min, f.Scale.Max)
			}
		case FieldTypeCategorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("field %s: categorical field without categories", name)
			}
			cats := make(map[string]struct{}, len(f.Categories))
			for _, c := range f.Categories {
				k := normalizeCategory(c)
				if k == "" {
					return fmt.Errorf("field %s: empty category", name)
				}
				if k == OtherBucket {
					return fmt.Errorf("field %s: %q is reserved for unknown categories", name, OtherBucket)
				}
				if _, ok := cats[k]; ok {
					return fmt.Errorf("field %s: duplicate category %q", name, c)
				}
				cats[k] = struct{}{}
			}
		default:
			return fmt.Errorf("field %s: unsupported type %q", name, f.Type)
		}
	}
	return nil
}

func normalizeCategory(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
