package auth

import (
	"net/http"
	"strings"
)

// QueryTokenParams are the query parameters checked for a token, in order.
// Browsers cannot set headers on a WebSocket upgrade, so hub clients pass
// the token as access_token.
var QueryTokenParams = []string{"access_token", "token"}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return ExtractBearerTokenFromHeader(r.Header.Get("Authorization"))
}

func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ExtractToken looks for a token in the Authorization header, then in the
// query parameters listed in QueryTokenParams.
func ExtractToken(r *http.Request) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if r == nil || r.URL == nil {
		return ""
	}
	query := r.URL.Query()
	for _, param := range QueryTokenParams {
		if token := strings.TrimSpace(query.Get(param)); token != "" {
			return token
		}
	}
	return ""
}
