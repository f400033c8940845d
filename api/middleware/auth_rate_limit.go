package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

// RateLimiter counts hits in fixed windows.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one auth surface. Zero limits disable that
// dimension; a zero window disables the policy.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

// counter is one dimension a request is counted under.
type counter struct {
	dimension string
	limit     int
	// subject returns the identity counted, or "" to skip the request.
	subject func(r *http.Request, body []byte) string
}

func (p RateLimitPolicy) counters() []counter {
	var out []counter
	if p.PerIP > 0 {
		out = append(out, counter{dimension: "ip", limit: p.PerIP, subject: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if p.PerEmail > 0 {
		out = append(out, counter{dimension: "email", limit: p.PerEmail, subject: func(_ *http.Request, body []byte) string {
			if email := emailFromBody(body); email != "" {
				sum := sha256.Sum256([]byte(email))
				return hex.EncodeToString(sum[:])
			}
			return ""
		}})
	}
	return out
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return "auth"
}

// AuthRateLimit rejects requests with 429 once any counter in policy is over
// its limit. Emails are hashed before they reach Redis or the logs.
func AuthRateLimit(policy RateLimitPolicy, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	counters := policy.counters()
	return func(next http.Handler) http.Handler {
		if limiter == nil || policy.Window <= 0 || len(counters) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.PerEmail > 0 {
				var err error
				if body, err = io.ReadAll(r.Body); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, c := range counters {
				subject := c.subject(r, body)
				if subject == "" {
					continue
				}
				scope := "auth:" + policy.name() + ":" + c.dimension + ":" + subject
				allowed, hits, err := limiter.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":    policy.name(),
						"dimension": c.dimension,
						"subject":   subject,
						"hits":      hits,
						"limit":     c.limit,
					}), "auth.rate_limited")
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window/time.Second)))
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP takes the left-most X-Forwarded-For entry set by the load
// balancer, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}
