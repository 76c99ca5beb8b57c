package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

const maxDetailLen = 200

// errorBody is the service's error envelope: {"detail": "..."}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detailFrom extracts a human message from an error response body.
func detailFrom(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s
		}
		return truncate(string(eb.Detail))
	}
	return truncate(strings.TrimSpace(string(body)))
}

// truncate cuts s to at most maxDetailLen bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// classifyStatus maps a non-2xx response onto the error taxonomy.
func classifyStatus(op string, status int, body []byte) error {
	detail := detailFrom(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail == "" {
			return fmt.Errorf("%s: %w", op, domain.ErrAuth)
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrAuth, detail)
	case http.StatusNotFound:
		if detail == "" {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, detail)
	}
	return &domain.TransportError{Op: op, StatusCode: status, Message: detail}
}

// classifyRequestErr maps a failure to obtain any response. A missing
// credential surfaces from the oauth2 transport and stays an auth error.
func classifyRequestErr(op string, err error) error {
	if errors.Is(err, domain.ErrAuth) {
		return fmt.Errorf("%s: %w", op, domain.ErrAuth)
	}
	return &domain.TransportError{Op: op, Err: err}
}
