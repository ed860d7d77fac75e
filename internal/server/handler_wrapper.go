// Provides the generic adapter turning typed handler functions into
// http.Handlers.

package server

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/librarydb/internal/server/dto"
	"github.com/maruel/librarydb/internal/server/handlers"
	"github.com/maruel/librarydb/internal/server/ratelimit"
	"github.com/maruel/librarydb/internal/server/reqctx"
	"github.com/maruel/librarydb/internal/storage/git"
)

// statusCoder is implemented by responses that are not sent with 200 OK.
type statusCoder interface {
	HTTPStatus() int
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// commitIfMutating records the data file in the history after a mutating
// request.
//
// It runs regardless of the handler outcome; Commit is a no-op when the file
// did not change.
func commitIfMutating(ctx context.Context, r *http.Request, svc *handlers.Services) {
	if svc == nil || svc.History == nil || !isMutating(r.Method) {
		return
	}
	msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
	if id := reqctx.RequestID(ctx); !id.IsZero() {
		msg += "\n\nRequest-ID: " + id.String()
	}
	if err := svc.History.Commit(ctx, git.Author{}, msg, svc.Books.Path()); err != nil {
		slog.ErrorContext(ctx, "Failed to commit data file", "err", err)
	}
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, r *http.Request, limiters *ratelimit.Config) (http.ResponseWriter, bool) {
	tier := limiters.Match(r.Method, r.URL.Path)
	if tier == nil {
		return w, true
	}
	res := tier.Limiter.Allow(tier.Key(reqctx.ClientIP(ctx)))
	w = ratelimit.NewResponseWriter(w, res)
	if !res.Allowed {
		handlers.WriteError(ctx, w, dto.RateLimitExceeded(int(res.RetryAfter.Seconds())))
		return w, false
	}
	return w, true
}

// readAndDecodeBody reads the body of mutating requests with a size limit and
// decodes it into input. An empty body leaves input untouched, and so does any
// body when input takes none.
func readAndDecodeBody[In any](w http.ResponseWriter, r *http.Request, input *In, cfg *handlers.Config) error {
	if !isMutating(r.Method) || !acceptsBody(input) {
		return nil
	}
	if cfg != nil && cfg.Quotas.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Quotas.MaxRequestBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return dto.PayloadTooLarge(maxBytesErr.Limit)
		}
		return dto.BadRequest("Failed to read request body").Wrap(err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, input); err != nil {
		if errors.Is(err, dto.ErrNotObject) {
			return dto.InvalidInput([]string{"Request body must be a JSON object"}).Wrap(err)
		}
		return dto.InvalidInput([]string{"Invalid JSON body"}).Wrap(err)
	}
	return nil
}

// writeJSONResponse writes output as JSON, or err as an error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		handlers.WriteError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if s, ok := any(output).(statusCoder); ok {
		status = s.HTTPStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
//
// The request is rate limited, its body decoded into In for mutating
// methods, then fields tagged `path:"name"` and `query:"name"` are filled
// from the URL and In is validated before fn runs. Successful or not, a
// mutating request is followed by a commit of the data file when history is
// enabled.
//
// Example:
//
//	type GetBookRequest struct {
//	    ID string `path:"id"`
//	}
//
//	func (h *BookHandler) GetBook(ctx context.Context, req *GetBookRequest) (*Book, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var ok bool
		if w, ok = checkRateLimit(ctx, w, r, limiters); !ok {
			return
		}

		input := new(In)
		if err := readAndDecodeBody(w, r, input, cfg); err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}
		populatePathParams(r, input)
		populateQueryParams(r, input)
		if err := PtrIn(input).Validate(); err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		commitIfMutating(ctx, r, svc)
		writeJSONResponse(ctx, w, output, err)
	})
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structOf(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("path")
		if tag == "" {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			setField(elem.Field(i), v)
		}
	}
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
//
// Values that do not parse are ignored and leave the field at its zero value.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structOf(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("query")
		if tag == "" {
			continue
		}
		if v := query.Get(tag); v != "" {
			setField(elem.Field(i), v)
		}
	}
}

// acceptsBody reports whether input is filled from the request body: it
// decodes itself, or has an exported field bound to neither the path nor the
// query.
func acceptsBody(input any) bool {
	if _, ok := input.(json.Unmarshaler); ok {
		return true
	}
	elem, ok := structOf(input)
	if !ok {
		return true
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		f := typ.Field(i)
		if f.IsExported() && f.Tag.Get("path") == "" && f.Tag.Get("query") == "" && f.Tag.Get("json") != "-" {
			return true
		}
	}
	return false
}

func structOf(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return val.Elem(), true
}

func setField(f reflect.Value, v string) {
	switch f.Kind() {
	case reflect.String:
		f.SetString(v)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.SetInt(n)
		}
	default:
		if f.CanAddr() {
			if u, ok := f.Addr().Interface().(encoding.TextUnmarshaler); ok {
				_ = u.UnmarshalText([]byte(v))
			}
		}
	}
}
