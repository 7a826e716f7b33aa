// Package metadata captures client details (IP and User-Agent) for logging.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"flightsurety/pkg/requestcontext"
)

// ClientMetadata stores the client IP and User-Agent in the request context.
// Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For lists client, proxy1, proxy2...; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// [::1]:port or 127.0.0.1:port
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}

// Client is a parsed User-Agent.
type Client struct {
	Browser string
	Version string
	OS      string
	Bot     bool
}

func (c Client) String() string {
	if c.Browser == "" {
		return "unknown"
	}
	s := c.Browser
	if c.Version != "" {
		s += "/" + c.Version
	}
	if c.OS != "" {
		s += " (" + c.OS + ")"
	}
	return s
}

// DescribeUserAgent parses a raw User-Agent header. Oracle daemons and curl
// show up as bots or bare product tokens.
func DescribeUserAgent(raw string) Client {
	if raw == "" {
		return Client{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return Client{
		Browser: name,
		Version: version,
		OS:      ua.OS(),
		Bot:     ua.Bot(),
	}
}
