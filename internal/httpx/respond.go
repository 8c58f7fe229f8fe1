package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type errorResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// fieldErrors carries per-field validator failures into the response.
type fieldErrors struct {
	err    *apperr.Error
	fields map[string]string
}

func (f *fieldErrors) Error() string { return f.err.Error() }
func (f *fieldErrors) Unwrap() error { return f.err }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status its kind maps to. Unclassified
// errors become 500 and carry their own message.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	code := apperr.HTTPStatus(err)
	body := errorResponse{
		Timestamp: time.Now().UTC(),
		Status:    code,
		Error:     http.StatusText(code),
		Message:   err.Error(),
		Path:      r.URL.Path,
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Code = string(ae.Kind)
		body.Message = ae.Message
	}
	var fe *fieldErrors
	if errors.As(err, &fe) {
		body.Fields = fe.fields
	}

	l := logx.Ctx(r.Context(), log)
	if code >= 500 {
		l.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, body)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation.
func decode(r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	return validate(v, dst)
}

func validate(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Validation(err.Error())
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = describe(fe)
	}
	return &fieldErrors{err: apperr.Validation("request validation failed"), fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
