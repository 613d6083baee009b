package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/domain/invitation"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a personal message.
const maxBodyBytes = 64 << 10

// errorBody is the JSON shape of every error response.
type errorBody struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator returns the shared validator. Field errors are reported by JSON name.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err.Error())
	}
}

// writeError writes an error body with the given status.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{ErrorKind: kind, Message: message})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeError(w, http.StatusInternalServerError, string(invitation.KindInternal), invitation.KindInternal.Message())
}

// statusForKind maps an invitation workflow failure to its HTTP status.
func statusForKind(k invitation.Kind) int {
	switch k {
	case invitation.KindNone:
		return http.StatusOK
	case invitation.KindNotFound:
		return http.StatusNotFound
	case invitation.KindExpired, invitation.KindAlreadyUsed:
		return http.StatusGone
	case invitation.KindEmailTaken, invitation.KindPendingExists, invitation.KindAlreadyClient:
		return http.StatusConflict
	case invitation.KindEmailMismatch, invitation.KindNotAClient:
		return http.StatusForbidden
	case invitation.KindLimitReached:
		return http.StatusPaymentRequired
	case invitation.KindUnauthenticated:
		return http.StatusUnauthorized
	case invitation.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeKind writes a failed workflow result. An empty message takes the kind's default.
func writeKind(w http.ResponseWriter, k invitation.Kind, message string) {
	if message == "" {
		message = k.Message()
	}
	writeError(w, statusForKind(k), string(k), message)
}

// badRequest reports invalid input with a message safe to show.
func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, string(invitation.KindInvalidInput), message)
}

// decodeRequest reads a JSON or form body into v and validates it.
// Form bodies only fill string fields; form posts carry the CSRF token, which is skipped.
// PRE: v is a pointer to a struct with json and validate tags
// POST: Returns nil and a populated v, or an error whose text is safe to show
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := decodeForm(r, v); err != nil {
			return err
		}
	default:
		if err := strictDecode(r, v); err != nil {
			return errors.New("request body is not valid JSON for this endpoint")
		}
	}
	return validateRequest(v)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeForm copies single-valued form fields into v through its JSON tags.
func decodeForm(r *http.Request, v any) error {
	if err := r.ParseForm(); err != nil {
		return errors.New("form could not be read")
	}
	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		if k == "gorilla.csrf.Token" {
			continue
		}
		fields[k] = r.PostForm.Get(k)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return errors.New("form could not be read")
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("form has unexpected or mistyped fields")
	}
	return nil
}

// validateRequest runs struct validation and turns the first failure into a readable message.
func validateRequest(v any) error {
	err := requestValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.New("request could not be validated")
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "email":
		return fmt.Errorf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Errorf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Errorf("%s is not valid", fe.Field())
}

// currentSession returns the session set by the auth middleware. Routes behind
// RequireAuth or RequireRole always have one.
func currentSession(r *http.Request) middleware.Session {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess
}

// isNoRows reports whether err is a store miss.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
