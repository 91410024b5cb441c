package cli

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mchmarny/admitguide/pkg/advisor"
	"github.com/mchmarny/admitguide/pkg/catalog"
	"github.com/mchmarny/admitguide/pkg/encoder"
	"github.com/mchmarny/admitguide/pkg/feedback"
	"github.com/mchmarny/admitguide/pkg/index"
)

const (
	requestBodyLimit     = 1 << 20
	feedbackListLimitMax = 500
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps domain errors onto HTTP status codes.
func writeFailure(w http.ResponseWriter, err error) {
	var ve *encoder.ValidationError
	switch {
	case errors.Is(err, advisor.ErrIncompleteEntry):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  ve.Error(),
			"field":  ve.Field,
			"reason": ve.Reason,
		})
	case errors.Is(err, index.ErrInvalidK):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUniversityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, feedback.ErrEmptyMessage), errors.Is(err, feedback.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	d := json.NewDecoder(io.LimitReader(r.Body, requestBodyLimit))
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// predictAPIHandler reads the profile from the query string on GET and
// from a JSON object on POST.
func predictAPIHandler(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile encoder.Profile

		if r.Method == http.MethodGet {
			values := make(map[string]string)
			for k, v := range r.URL.Query() {
				if len(v) > 0 {
					values[k] = v[0]
				}
			}
			p, err := a.Encoder().ParseProfile(values)
			if err != nil {
				writeFailure(w, err)
				return
			}
			profile = p
		} else {
			body := map[string]any{}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			profile = encoder.Profile(body)
		}

		res, err := a.Predict(profile)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type searchRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k"`
}

func searchAPIHandler(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := searchRequest{}

		if r.Method == http.MethodPost {
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else {
			req.Query = r.URL.Query().Get("q")
			if s := strings.TrimSpace(r.URL.Query().Get("k")); s != "" {
				k, err := strconv.Atoi(s)
				if err != nil {
					writeError(w, http.StatusBadRequest, "k must be an integer")
					return
				}
				req.K = &k
			}
		}

		k := a.DefaultK()
		if req.K != nil {
			k = *req.K
		}

		res, err := runSearch(a, req.Query, k)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func evaluateAPIHandler(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req advisor.EvaluationRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.University) == "" {
			writeError(w, http.StatusBadRequest, "university is required")
			return
		}

		ev, err := a.Evaluate(req)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func feedbackAPIHandler(l *feedback.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fb feedback.Feedback
		if err := decodeBody(r, &fb); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		saved, err := l.Log(r.Context(), feedback.Feedback{Endpoint: fb.Endpoint, Message: fb.Message})
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": saved.ID})
	}
}

func feedbackListAPIHandler(l *feedback.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := feedbackListLimitDefault
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > feedbackListLimitMax {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		list, err := l.List(r.Context(), limit)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func infoAPIHandler(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, a.Info())
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
