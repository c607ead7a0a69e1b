package channel

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/timeattack/pkg/logger"
)

// DiscordOption applies a configuration option to the Discord client.
type DiscordOption func(*Discord)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(base string) DiscordOption {
	return func(d *Discord) {
		if base != "" {
			d.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) DiscordOption {
	return func(d *Discord) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *Discord) {
		if c != nil {
			d.client = c
		}
	}
}

// WithRate sets the steady request rate and burst.
func WithRate(perSecond float64, burst int) DiscordOption {
	return func(d *Discord) {
		if perSecond > 0 && burst > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) DiscordOption {
	return func(d *Discord) {
		if l != nil {
			d.logger = l
		}
	}
}
