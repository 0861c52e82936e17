package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records"
	"arwaeduc/internal/report"
	"arwaeduc/internal/services"
)

const maxBodyBytes = 1 << 20

// Problem is an RFC 7807 error body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var errBadRequest = errors.New("bad request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// fail maps err to a problem response. Server-side failures are logged and
// their detail withheld from the client.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	}
	writeProblem(w, status, detail)
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, describeValidation(verrs)
	case errors.Is(err, errBadRequest),
		errors.Is(err, services.ErrUnknownSource),
		errors.Is(err, report.ErrReceiptWidth):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, records.ErrUnsupportedSchema):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyStudent),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidInscriptionType),
		errors.Is(err, core.ErrInvalidTransactionType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAttendance):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// decodeJSON reads one JSON object into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return validate.Struct(dst)
}
