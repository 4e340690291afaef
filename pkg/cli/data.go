package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/mchmarny/nutctl/pkg/nutrition"
)

const (
	maxRequestBodyBytes = 1 << 20
)

// FoodView is a cached food with its radar chart values.
type FoodView struct {
	*nutrition.Profile `yaml:",inline"`
	Radar              *nutrition.RadarChart `json:"radar" yaml:"radar"`
}

func newFoodView(p *nutrition.Profile) *FoodView {
	return &FoodView{Profile: p, Radar: nutrition.Radar(p)}
}

// SearchResponse is returned by the search endpoint.
type SearchResponse struct {
	Import *ImportResult        `json:"import" yaml:"import"`
	Foods  []*nutrition.Profile `json:"foods" yaml:"foods"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// writeJSON encodes v before the status is written. Encoding failures become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps err onto a status code and writes it.
func writeErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
	} else {
		slog.Debug(msg, "error", err)
	}
	writeError(w, status, fmt.Sprintf("%s: %v", msg, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, nutrition.ErrInvalidInput),
		errors.Is(err, nutrition.ErrUnknownGoal),
		errors.Is(err, fdc.ErrQueryRequired),
		errors.Is(err, fdc.ErrAPIKeyRequired):
		return http.StatusBadRequest
	case errors.Is(err, fdc.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, fdc.ErrUnexpectedStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %w", nutrition.ErrInvalidInput, err)
	}
	return nil
}

func queryParamInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func queryParamFloat(r *http.Request, key string) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", nutrition.ErrInvalidInput, key, v)
	}
	if err := checkFinite(key, f); err != nil {
		return 0, err
	}
	return f, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: food id %q", nutrition.ErrInvalidInput, r.PathValue("id"))
	}
	return id, nil
}

func foodsAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.store.QueryFoods(r.Context(), r.URL.Query().Get("q"), queryParamInt(r, "limit", queryResultLimitDefault))
		if err != nil {
			writeErr(w, "failed to query foods", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func foodAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupFood(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, newFoodView(p))
	}
}

func radarAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupFood(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, nutrition.Radar(p))
	}
}

func lookupFood(w http.ResponseWriter, r *http.Request, d *serverDeps) (*nutrition.Profile, bool) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, "invalid request", err)
		return nil, false
	}

	p, err := d.store.GetFood(r.Context(), id)
	if err != nil {
		writeErr(w, "failed to get food", err)
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("food %d not found", id))
		return nil, false
	}
	return p, true
}

func searchesAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.store.ListSearches(r.Context(), queryParamInt(r, "limit", queryResultLimitDefault))
		if err != nil {
			writeErr(w, "failed to list searches", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func searchAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeErr(w, "invalid request", err)
			return
		}

		limit := req.Limit
		if limit <= 0 {
			limit = d.pageSize
		}

		client, err := d.newClient()
		if err != nil {
			writeErr(w, "search unavailable", err)
			return
		}

		res, profiles, err := importFoods(r.Context(), client, d.store, req.Query, limit)
		if err != nil {
			writeErr(w, "search failed", err)
			return
		}
		writeJSON(w, http.StatusOK, &SearchResponse{Import: res, Foods: profiles})
	}
}

func scoreAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeErr(w, "invalid request", err)
			return
		}
		if err := normalizePerson(&req.Person); err != nil {
			writeErr(w, "invalid request", err)
			return
		}

		res, err := scoreFoods(r.Context(), d.store, d.newClient, d.goal, d.pageSize, &req)
		if err != nil {
			writeErr(w, "scoring failed", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func energyAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p nutrition.Person
		if err := decodeBody(w, r, &p); err != nil {
			writeErr(w, "invalid request", err)
			return
		}
		if err := normalizePerson(&p); err != nil {
			writeErr(w, "invalid request", err)
			return
		}

		res, err := evaluateEnergy(p)
		if err != nil {
			writeErr(w, "invalid request", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func exerciseAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vals := make(map[string]float64, 5)
		for _, k := range []string{"calories", "bmi", "age", "height", "weight"} {
			v, err := queryParamFloat(r, k)
			if err != nil {
				writeErr(w, "invalid request", err)
				return
			}
			vals[k] = v
		}

		if vals["calories"] <= 0 {
			writeErr(w, "invalid request", fmt.Errorf("%w: calories must be positive", nutrition.ErrInvalidInput))
			return
		}

		bmi := vals["bmi"]
		if bmi <= 0 && (vals["height"] > 0 || vals["weight"] > 0) {
			var err error
			if bmi, err = nutrition.BMI(vals["height"], vals["weight"]); err != nil {
				writeErr(w, "invalid request", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, newExerciseResult(vals["calories"], bmi, vals["age"]))
	}
}

func stateAPIHandler(d *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := d.store.GetDataState(r.Context())
		if err != nil {
			writeErr(w, "failed to get data state", err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// normalizePerson parses the sex and activity level strictly, defaulting
// an empty activity level to active.
func normalizePerson(p *nutrition.Person) error {
	sex, err := nutrition.ParseSex(string(p.Sex))
	if err != nil {
		return err
	}
	p.Sex = sex

	if p.Activity == "" {
		p.Activity = nutrition.Active
		return nil
	}
	level, err := nutrition.ParseActivityLevel(string(p.Activity))
	if err != nil {
		return err
	}
	p.Activity = level
	return nil
}
