package lemmy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the instance.
// Code is Lemmy's error identifier (ex: "couldnt_find_community") when the
// body carried one.
type APIError struct {
	Method string
	Path   string
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("lemmy %s %s: %d %s", e.Method, e.Path, e.Status, e.Code)
	}
	return fmt.Sprintf("lemmy %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// NotFound reports whether the instance said the object does not exist.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound || strings.HasPrefix(e.Code, "couldnt_find")
}

// Unauthorized reports whether the JWT was missing, expired or rejected.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Code == "not_logged_in" || e.Code == "incorrect_login"
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Error
	}
	return apiErr
}
