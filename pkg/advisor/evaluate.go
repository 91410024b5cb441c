package advisor

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/admitguide/pkg/catalog"
	"github.com/mchmarny/admitguide/pkg/encoder"
	"github.com/mchmarny/admitguide/pkg/model"
)

// ErrIncompleteEntry means the catalog row lacks a value the evaluation
// needs.
var ErrIncompleteEntry = errors.New("catalog entry is incomplete")

// EvaluationRequest holds an applicant's scores for one university.
type EvaluationRequest struct {
	University string             `json:"university" yaml:"university"`
	Scores     map[string]float64 `json:"scores" yaml:"scores"`
}

// Evaluation blends the share of met requirements with the model
// probability for the university's own profile.
type Evaluation struct {
	University       string     `json:"university" yaml:"university"`
	Program          string     `json:"program,omitempty" yaml:"program,omitempty"`
	Probability      float64    `json:"probability" yaml:"probability"`
	Band             model.Band `json:"band" yaml:"band"`
	MatchScore       int        `json:"match_score" yaml:"match_score"`
	MatchTotal       int        `json:"match_total" yaml:"match_total"`
	ModelProbability float64    `json:"model_probability" yaml:"model_probability"`
	Unmet            []string   `json:"unmet" yaml:"unmet"`
}

// Evaluate scores the applicant against the named university. Unknown
// universities return catalog.ErrUniversityNotFound and missing applicant
// scores return *encoder.ValidationError.
func (a *Advisor) Evaluate(req EvaluationRequest) (Evaluation, error) {
	defer a.metrics.Track(EndpointEvaluate)()

	reqs := a.cfg.Evaluation.Requirements
	for _, r := range reqs {
		v, ok := req.Scores[r.Field]
		if !ok {
			return Evaluation{}, &encoder.ValidationError{Field: r.Field, Reason: "required field is missing"}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Evaluation{}, &encoder.ValidationError{Field: r.Field, Reason: "value is not a finite number"}
		}
	}

	entry, err := a.catalog.FindUniversity(req.University)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%s: %w", strings.TrimSpace(req.University), err)
	}

	profile, err := a.entryProfile(entry)
	if err != nil {
		return Evaluation{}, err
	}
	v, err := a.encoder.Encode(profile)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%s: %w: %w", entry.University, ErrIncompleteEntry, err)
	}
	pred, err := a.predictor.Predict(v)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		University:       entry.University,
		Program:          entry.Program,
		MatchTotal:       len(reqs),
		ModelProbability: pred.Probability,
		Unmet:            make([]string, 0),
	}

	for _, r := range reqs {
		required, ok := entry.Float(r.Column)
		if !ok {
			return Evaluation{}, fmt.Errorf("%s has no numeric %q: %w", entry.University, r.Column, ErrIncompleteEntry)
		}
		if req.Scores[r.Field] >= required {
			ev.MatchScore++
		} else {
			ev.Unmet = append(ev.Unmet, r.Field)
		}
	}

	w := a.cfg.Evaluation.MatchWeight
	match := 0.0
	if ev.MatchTotal > 0 {
		match = float64(ev.MatchScore) / float64(ev.MatchTotal)
	} else {
		w = 0
	}
	ev.Probability = w*match + (1-w)*pred.Probability
	ev.Band = a.predictor.Bands().Classify(ev.Probability)

	return ev, nil
}

// entryProfile builds the model input from the catalog row, reading each
// field from its mapped column.
func (a *Advisor) entryProfile(e catalog.Entry) (encoder.Profile, error) {
	cols := a.cfg.Catalog.Columns
	p := make(encoder.Profile, len(a.encoder.Schema().Fields))

	for _, f := range a.encoder.Schema().Fields {
		column := f.Name
		if c, ok := a.cfg.Evaluation.Features[f.Name]; ok && c != "" {
			column = c
		}

		raw, ok := e.Value(column)
		if !ok && strings.EqualFold(column, cols.University) {
			raw, ok = e.University, e.University != ""
		}
		if !ok {
			return nil, fmt.Errorf("%s has no %q for model field %s: %w", e.University, column, f.Name, ErrIncompleteEntry)
		}

		if f.Type == encoder.FieldTypeNumeric {
			n, ok := e.Float(column)
			if !ok {
				return nil, fmt.Errorf("%s has non-numeric %q (%s): %w", e.University, column, raw, ErrIncompleteEntry)
			}
			p[f.Name] = n
			continue
		}
		p[f.Name] = raw
	}

	return p, nil
}
