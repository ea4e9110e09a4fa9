package jira

import (
	"net/http"
	"strings"
)

// AuthFunc applies credentials to an outgoing request.
type AuthFunc func(*http.Request)

// NewBasicAuth returns an AuthFunc that sends email and API token as HTTP
// basic credentials, the scheme Jira Cloud uses for API tokens.
func NewBasicAuth(email, token string) AuthFunc {
	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)
	return func(r *http.Request) {
		r.SetBasicAuth(email, token)
	}
}
