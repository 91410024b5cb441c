// Package advisor wires the admission model, the program catalog and its
// text index into the operations served by the CLI and the HTTP API.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/admitguide/pkg/catalog"
	"github.com/mchmarny/admitguide/pkg/config"
	"github.com/mchmarny/admitguide/pkg/encoder"
	"github.com/mchmarny/admitguide/pkg/index"
	"github.com/mchmarny/admitguide/pkg/metrics"
	"github.com/mchmarny/admitguide/pkg/model"
	"github.com/mchmarny/admitguide/pkg/net"
	"golang.org/x/sync/errgroup"
)

const (
	EndpointPredict  = "predict"
	EndpointSearch   = "search"
	EndpointEvaluate = "evaluate"
)

// Advisor holds the read-only state built at startup. All methods are
// safe for concurrent use.
type Advisor struct {
	cfg       *config.Config
	artifact  *model.Artifact
	encoder   *encoder.Encoder
	predictor *model.Predictor
	catalog   *catalog.Catalog
	index     *index.Index
	metrics   *metrics.Recorder
}

// Option configures the advisor.
type Option func(*Advisor)

// WithMetrics records per-operation request counts and latency.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Advisor) {
		a.metrics = m
	}
}

// New loads the model and builds the catalog index concurrently. It
// returns only after both complete; any failure aborts initialization.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Advisor{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.loadModel(gctx)
	})
	g.Go(func() error {
		return a.loadCatalog(gctx)
	})

	if err := g.Wait(); err != nil {
		a.Close()
		return nil, err
	}

	slog.Info("advisor ready",
		"model", a.artifact.Manifest.Name,
		"width", a.encoder.Width(),
		"catalog", a.catalog.Len(),
		"vocabulary", len(a.index.Vocabulary()),
		"fingerprint", a.index.Fingerprint())

	return a, nil
}

func (a *Advisor) loadModel(ctx context.Context) error {
	path, err := net.Resolve(ctx, a.cfg.Model.Path, a.cfg.CacheDir)
	if err != nil {
		return &model.LoadError{Path: a.cfg.Model.Path, Err: err}
	}

	art, err := model.Load(ctx, path, model.WithRuntimeLibrary(a.cfg.Model.RuntimeLibrary))
	if err != nil {
		return err
	}
	a.artifact = art

	enc, err := encoder.New(art.Manifest.Input)
	if err != nil {
		return &model.LoadError{Path: path, Err: err}
	}
	if err := encoder.CheckWidth(enc, art.Classifier.InputWidth()); err != nil {
		return err
	}

	p, err := model.NewPredictor(art.Classifier, a.cfg.Bands)
	if err != nil {
		return err
	}

	a.encoder = enc
	a.predictor = p
	slog.Debug("model loaded", "name", art.Manifest.Name, "version", art.Manifest.Version, "format", art.Manifest.Format)
	return nil
}

func (a *Advisor) loadCatalog(ctx context.Context) error {
	path, err := net.Resolve(ctx, a.cfg.Catalog.Path, a.cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("error fetching catalog: %w", err)
	}

	c, err := catalog.Load(path, catalog.Options{
		Sheet:   a.cfg.Catalog.Sheet,
		Columns: a.cfg.Catalog.Columns,
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ix, err := index.Build(c.Entries(), index.NewTokenizer(a.cfg.Text))
	if err != nil {
		return err
	}

	a.catalog = c
	a.index = ix
	return nil
}

// Close releases the model runtime.
func (a *Advisor) Close() error {
	if a == nil || a.artifact == nil {
		return nil
	}
	return a.artifact.Close()
}

func (a *Advisor) Encoder() *encoder.Encoder {
	return a.encoder
}

func (a *Advisor) Catalog() *catalog.Catalog {
	return a.catalog
}

func (a *Advisor) Index() *index.Index {
	return a.index
}

// DefaultK is the result count used when a caller does not ask for one.
func (a *Advisor) DefaultK() int {
	return a.cfg.Search.DefaultK
}

// Predict encodes the applicant profile and returns the banded admission
// probability. Invalid profiles return *encoder.ValidationError.
func (a *Advisor) Predict(p encoder.Profile) (model.Prediction, error) {
	defer a.metrics.Track(EndpointPredict)()

	v, err := a.encoder.Encode(p)
	if err != nil {
		return model.Prediction{}, err
	}
	return a.predictor.Predict(v)
}

// Search ranks catalog programs against the free-text query. When
// search.max_k is set, k above it is capped; otherwise min(k, n) matches
// are returned. Queries without any indexed term return
// *index.EmptyQueryError.
func (a *Advisor) Search(query string, k int) (index.Result, error) {
	defer a.metrics.Track(EndpointSearch)()

	if a.cfg.Search.MaxK > 0 && k > a.cfg.Search.MaxK {
		k = a.cfg.Search.MaxK
	}
	return a.index.SearchWithOptions(query, k, index.SearchOptions{MinScore: a.cfg.Search.MinScore})
}

// Info describes the loaded state.
type Info struct {
	Model       ModelInfo       `json:"model" yaml:"model"`
	Fields      []encoder.Field `json:"fields" yaml:"fields"`
	Bands       model.Bands     `json:"bands" yaml:"bands"`
	Catalog     int             `json:"catalog_size" yaml:"catalog_size"`
	Vocabulary  int             `json:"vocabulary_size" yaml:"vocabulary_size"`
	Fingerprint string          `json:"index_fingerprint" yaml:"index_fingerprint"`
}

type ModelInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Format  string `json:"format" yaml:"format"`
	Width   int    `json:"width" yaml:"width"`
}

func (a *Advisor) Info() Info {
	m := a.artifact.Manifest
	return Info{
		Model: ModelInfo{
			Name:    m.Name,
			Version: m.Version,
			Format:  m.Format,
			Width:   a.encoder.Width(),
		},
		Fields:      a.encoder.Schema().Fields,
		Bands:       a.predictor.Bands(),
		Catalog:     a.catalog.Len(),
		Vocabulary:  len(a.index.Vocabulary()),
		Fingerprint: a.index.Fingerprint(),
	}
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	var ve *encoder.ValidationError
	return errors.As(err, &ve)
}
