package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/IBM/go-sdk-core/v5/core"

	"github.com/imamik/miqcheck/internal/util/retry"
)

// KlassRecordNotFound is the error class the appliance reports for missing
// records, including records deleted a moment ago.
const KlassRecordNotFound = "ActiveRecord::RecordNotFound"

var (
	// ErrNotFound is returned by lookups that matched nothing.
	ErrNotFound = errors.New("resource not found")
	// ErrMultiple is returned by lookups that expected one match.
	ErrMultiple = errors.New("more than one resource matched")
	// ErrUnexpectedError is returned by ExpectError when the call succeeded.
	ErrUnexpectedError = errors.New("expected an API error")
)

// APIError is an error answer of the API, decoded from
// {"error": {"kind": ..., "message": ..., "klass": ...}}. StatusCode is 0
// for transport failures.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Kind       string
	Message    string
	Klass      string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d", e.StatusCode)
	}
	if e.Klass != "" {
		fmt.Fprintf(&b, " %s", e.Klass)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ActionError reports results of an action that came back with
// "success": false.
type ActionError struct {
	Action   string
	Messages []string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %s", e.Action, strings.Join(e.Messages, "; "))
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Klass == KlassRecordNotFound
}

// ExpectError checks that err is an API error whose class or message
// contains want. It returns nil when it is, ErrUnexpectedError when err is
// nil, and err itself otherwise.
func ExpectError(err error, want string) error {
	if err == nil {
		return fmt.Errorf("%w containing %q", ErrUnexpectedError, want)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if strings.Contains(apiErr.Klass, want) || strings.Contains(apiErr.Message, want) {
			return nil
		}
	}
	return err
}

func newAPIError(method, path string, resp *core.DetailedResponse, err error) *APIError {
	apiErr := &APIError{Method: method, Path: path, Err: err}
	if resp == nil {
		apiErr.Message = err.Error()
		return apiErr
	}

	apiErr.StatusCode = resp.GetStatusCode()
	body, ok := resp.GetResultAsMap()
	if !ok && len(resp.RawResult) > 0 {
		_ = json.Unmarshal(resp.RawResult, &body)
	}
	if detail, ok := body["error"].(map[string]any); ok {
		apiErr.Kind, _ = detail["kind"].(string)
		apiErr.Message, _ = detail["message"].(string)
		apiErr.Klass, _ = detail["klass"].(string)
	}
	if apiErr.Message == "" {
		apiErr.Message = err.Error()
	}
	return apiErr
}

func isRetryable(err *APIError) bool {
	switch {
	case err.StatusCode == 0:
		return true
	case err.StatusCode == http.StatusTooManyRequests:
		return true
	case err.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// unwrapFatal strips the retry marker so callers see the *APIError.
func unwrapFatal(err error) error {
	var fatal *retry.FatalError
	if errors.As(err, &fatal) {
		return fatal.Err
	}
	return err
}
