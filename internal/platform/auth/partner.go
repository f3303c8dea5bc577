package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumicab/api/internal/platform/requestctx"
)

const defaultLeeway = 30 * time.Second

var (
	// ErrTokenExpired signals that the partner link token has expired.
	ErrTokenExpired = errors.New("auth: partner token expired")
	// ErrTokenInvalid signals that the partner link token failed verification.
	ErrTokenInvalid = errors.New("auth: partner token invalid")
)

// PartnerClaims carries the identity embedded in a signed partner link.
type PartnerClaims struct {
	PartnerID string `json:"partner_id"`
	jwt.RegisteredClaims
}

// PartnerVerifier validates partner link tokens signed with a shared HMAC secret.
type PartnerVerifier struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// PartnerOption customises PartnerVerifier behaviour.
type PartnerOption func(*PartnerVerifier)

// WithLeeway adjusts the clock-skew tolerance applied to expiry checks.
func WithLeeway(d time.Duration) PartnerOption {
	return func(v *PartnerVerifier) {
		if d > 0 {
			v.leeway = d
		}
	}
}

// WithClock overrides the time source used during validation.
func WithClock(now func() time.Time) PartnerOption {
	return func(v *PartnerVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewPartnerVerifier constructs a verifier for partner session links.
func NewPartnerVerifier(secret string, opts ...PartnerOption) (*PartnerVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: partner secret is required")
	}
	v := &PartnerVerifier{
		secret: []byte(secret),
		leeway: defaultLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify parses and validates a partner token, returning the partner identifier.
func (v *PartnerVerifier) Verify(tokenStr string) (string, error) {
	if v == nil {
		return "", ErrTokenInvalid
	}

	claims := &PartnerClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	partnerID := strings.TrimSpace(claims.PartnerID)
	if partnerID == "" {
		partnerID = strings.TrimSpace(claims.Subject)
	}
	if partnerID == "" {
		return "", fmt.Errorf("%w: missing partner identifier", ErrTokenInvalid)
	}
	return partnerID, nil
}

// PartnerSessionMiddleware activates partner mode when a valid bearer token is presented.
// Requests without a token pass through as regular consumer sessions; requests with a
// malformed or expired token are rejected so stale links surface an explicit error.
func (v *PartnerVerifier) PartnerSessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			partnerID, err := v.Verify(tokenStr)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					respondAuthError(w, http.StatusUnauthorized, "token_expired", "partner link expired")
					return
				}
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "partner link invalid")
				return
			}

			ctx := requestctx.WithPartner(r.Context(), requestctx.Partner{ID: partnerID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
