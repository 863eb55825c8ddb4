package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/fintrack-auth/internal/config"
)

const corsMaxAge = 600

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	methods     string
	headers     string
	credentials bool
}

func newCORSPolicy(cfg config.Config) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.CORSAllowedOrigins)),
		methods:     strings.Join(cfg.CORSAllowedMethods, ", "),
		headers:     strings.Join(cfg.CORSAllowedHeaders, ", "),
		credentials: cfg.CORSAllowCredentials,
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[strings.ToLower(origin)]
	return ok
}

// allowOrigin is the Access-Control-Allow-Origin value; credentialed
// responses must echo the origin instead of "*".
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin && !p.credentials {
		return "*"
	}
	return origin
}

// CORS applies the configured cross-origin policy. Requests from other
// origins pass through without CORS headers; their preflights get 204.
func CORS(cfg config.Config) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if origin != "" && policy.allows(origin) {
			h := c.Writer.Header()
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", policy.allowOrigin(origin))
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
			if policy.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if preflight {
				h.Set("Access-Control-Allow-Methods", policy.methods)
				h.Set("Access-Control-Allow-Headers", policy.headers)
				h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			}
		}

		if origin != "" && preflight {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
