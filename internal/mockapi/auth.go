package mockapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"kairon/internal/config"
	"kairon/internal/session"

	"golang.org/x/time/rate"
)

var (
	errMissingToken = errors.New("authentication required")
	errInvalidToken = errors.New("invalid access token")
)

// principal is the caller behind a bearer token. Static tokens carry no company.
type principal struct {
	Token          string
	CompanyID      string
	ProfessionalID string
}

type principalKey struct{}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(principalKey{}).(*principal)
	return p
}

// Auth checks bearer tokens and applies per-caller rate limits.
type Auth struct {
	tokens   [][]byte
	secret   string
	rps      float64
	burst    int
	limiters sync.Map // map[string]*rate.Limiter
}

func NewAuth(cfg config.MockServerConfig) *Auth {
	a := &Auth{secret: cfg.JWTSecret, rps: cfg.RateLimitRPS, burst: cfg.RateLimitBurst}
	for _, t := range cfg.Tokens {
		if t = strings.TrimSpace(t); t != "" {
			a.tokens = append(a.tokens, []byte(t))
		}
	}
	return a
}

// Enabled reports whether any credential is configured. Without one every caller is trusted.
func (a *Auth) Enabled() bool {
	return len(a.tokens) > 0 || a.secret != ""
}

func (a *Auth) identify(r *http.Request) (*principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, errInvalidToken
	}

	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare(t, []byte(token)) == 1 {
			return &principal{Token: token}, nil
		}
	}
	if a.secret != "" {
		claims, err := session.Verify(a.secret, token)
		if err == nil {
			return &principal{Token: token, CompanyID: claims.CompanyID, ProfessionalID: claims.Subject}, nil
		}
	}
	return nil, errInvalidToken
}

// Authenticate attaches the caller to the request context. A present but unknown token is rejected.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.identify(r)
		if err != nil && a.Enabled() {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		key := a.clientKey(r, p)
		if !a.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		if p != nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects anonymous callers when auth is enabled.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Enabled() && principalFrom(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, errMissingToken.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) allow(key string) bool {
	if a.rps <= 0 {
		return true
	}
	return a.getLimiter(key).Allow()
}

func (a *Auth) clientKey(r *http.Request, p *principal) string {
	if p != nil {
		return "token:" + p.Token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "unknown"
}

func (a *Auth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := a.burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.rps), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
