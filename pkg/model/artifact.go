package model

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mchmarny/admitguide/pkg/encoder"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

const (
	FormatForest = "forest"
	FormatONNX   = "onnx"

	supportedMajor = "v1"
	schemaURL      = "schema://admitguide/artifact.schema.json"
)

var (
	//go:embed schema/artifact.schema.json
	artifactSchemaJSON []byte

	compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(artifactSchemaJSON))
		if err != nil {
			return nil, fmt.Errorf("parse artifact schema: %w", err)
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			return nil, fmt.Errorf("add artifact schema: %w", err)
		}
		return c.Compile(schemaURL)
	})
)

// Classifier is a loaded, read-only binary classifier.
type Classifier interface {
	PositiveProbability(x []float64) (float64, error)
	InputWidth() int
	Close() error
}

// Manifest is the JSON document describing a trained model artifact.
type Manifest struct {
	SchemaVersion string         `json:"schema_version"`
	Name          string         `json:"name"`
	Version       string         `json:"version,omitempty"`
	Format        string         `json:"format"`
	Features      int            `json:"n_features"`
	Input         encoder.Schema `json:"input_schema"`
	Forest        *ForestSpec    `json:"forest,omitempty"`
	ONNX          *ONNXSpec      `json:"onnx,omitempty"`
}

// Artifact is a loaded model: its manifest and the classifier backend.
type Artifact struct {
	Manifest   Manifest
	Classifier Classifier
}

// Close releases the classifier resources.
func (a *Artifact) Close() error {
	if a == nil || a.Classifier == nil {
		return nil
	}
	return a.Classifier.Close()
}

type loadOptions struct {
	runtimeLibrary string
}

// Option configures Load.
type Option func(*loadOptions)

// WithRuntimeLibrary sets the ONNX Runtime shared library path.
func WithRuntimeLibrary(path string) Option {
	return func(o *loadOptions) {
		o.runtimeLibrary = path
	}
}

// Load reads and validates the artifact at path and builds its classifier.
// Every failure is returned as *LoadError.
func Load(ctx context.Context, path string, opts ...Option) (*Artifact, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	a, err := load(ctx, path, o)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return a, nil
}

func load(ctx context.Context, path string, o *loadOptions) (*Artifact, error) {
	if path == "" {
		return nil, errors.New("artifact path not specified")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading artifact: %w", err)
	}

	m, err := ParseManifest(b)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clf Classifier
	switch m.Format {
	case FormatForest:
		clf, err = NewForest(*m.Forest, m.Features)
	case FormatONNX:
		p := m.ONNX.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		clf, err = NewONNXClassifier(p, *m.ONNX, m.Features, o.runtimeLibrary)
	default:
		err = fmt.Errorf("unsupported format: %s", m.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("error building %s classifier: %w", m.Format, err)
	}

	slog.Debug("model artifact loaded",
		"name", m.Name,
		"version", m.Version,
		"format", m.Format,
		"features", clf.InputWidth(),
	)

	return &Artifact{Manifest: *m, Classifier: clf}, nil
}

// ParseManifest validates raw artifact JSON against the embedded schema and
// checks the schema version is supported.
func ParseManifest(b []byte) (*Manifest, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("error compiling artifact schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("artifact is not valid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("artifact does not match schema: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("error decoding artifact: %w", err)
	}

	if err := checkVersion(m.SchemaVersion); err != nil {
		return nil, err
	}

	if err := m.Input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input schema: %w", err)
	}

	return &m, nil
}

func checkVersion(v string) error {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid artifact schema version: %q", v)
	}
	if semver.Major(v) != supportedMajor {
		return fmt.Errorf("unsupported artifact schema version %s (supported: %s.x)", v, supportedMajor)
	}
	return nil
}
