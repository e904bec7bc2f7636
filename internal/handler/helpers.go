package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// validate reports field errors by their JSON names. Required struct
// fields (entry dates) must be non-zero.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into a domain error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := "is invalid"
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "min":
			msg = fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return &domain.ErrValidation{Field: fieldPath(fe), Message: msg}
	}
	return &domain.ErrValidation{Field: "body", Message: err.Error()}
}

// fieldPath drops the root type name from the namespace, so a nested entry
// error reads "entries[0].category" and a bare slice error "[0].category".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if strings.HasPrefix(ns, "[") {
		return ns
	}
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. It writes the 400 response itself and reports whether the
// handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err).Error())
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP responses. Anything that is
// not a client error is a 500 whose detail starts with prefix.
func handleServiceError(w http.ResponseWriter, err error, prefix string, metrics *observability.Metrics, logger *zap.Logger) {
	var validation *domain.ErrValidation

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		metrics.IncrRequest("client_error")
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", zap.String("operation", prefix), zap.Error(err))
		metrics.IncrRequest("error")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", prefix, err.Error()))
	}
}
