package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
)

// apiError is the PostgREST error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase returned status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Message)
}

// uniqueViolation is the Postgres SQLSTATE PostgREST forwards on conflicts.
const uniqueViolation = "23505"

func parseAPIError(status int, body []byte) error {
	apiErr := &apiError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Code == uniqueViolation || status == http.StatusConflict {
		key := apiErr.Details
		if key == "" {
			key = apiErr.Message
		}
		return &domain.ErrDuplicate{Key: key}
	}
	return apiErr
}

// eq renders a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + v
}

// in renders a PostgREST membership filter value.
func in(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// path joins a table name and encoded query parameters.
func path(table string, q url.Values) string {
	if len(q) == 0 {
		return table
	}
	return table + "?" + q.Encode()
}
