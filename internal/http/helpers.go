package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/log"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes. Anything
// unclassified is a 500 and gets logged; classified errors are the client's
// problem and logged at debug only.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrUpstream):
		status = http.StatusBadGateway
	}

	logger := log.FromContext(ctx)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err)
	} else {
		logger.DebugContext(ctx, "Request rejected", log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrInvalidArgument, err)
	}
	return nil
}

// pathID extracts the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrInvalidArgument, raw)
	}
	return id, nil
}

// parseMonth reads the optional ?month=YYYY-MM query parameter, defaulting to
// the current month.
func parseMonth(r *http.Request) (int, int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		now := time.Now().UTC()
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.ParseInLocation(monthLayout, raw, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid month %q, want YYYY-MM", core.ErrInvalidArgument, raw)
	}
	return t.Year(), int(t.Month()), nil
}

func parseDateParam(r *http.Request, name string) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return core.Date{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q, want YYYY-MM-DD", core.ErrInvalidArgument, name, raw)
	}
	return core.Date{Time: t}, nil
}

func parseDateField(name, raw string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q, want YYYY-MM-DD", core.ErrInvalidArgument, name, raw)
	}
	return core.Date{Time: t}, nil
}

func parseMonthField(name, raw string) (core.Date, error) {
	t, err := time.ParseInLocation(monthLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q, want YYYY-MM", core.ErrInvalidArgument, name, raw)
	}
	return core.Date{Time: t}, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidArgument, name, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v, err := queryInt64(r, name)
	return int(v), err
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
