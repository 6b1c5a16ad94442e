package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// TokenManager issues and validates HMAC-signed opaque bearer tokens. The
// payload is user_id:issued:expires; no server-side session state.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the user.
func (tm *TokenManager) Issue(userID domain.UserID) string {
	now := time.Now()
	payload := fmt.Sprintf("%s:%d:%d", userID, now.Unix(), now.Add(tm.ttl).Unix())
	mac := hmac.New(sha256.New, tm.secret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + sig
}

// Validate verifies the signature and expiry and returns the user id.
func (tm *TokenManager) Validate(token string) (domain.UserID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed token")
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed token payload")
	}
	mac := hmac.New(sha256.New, tm.secret)
	mac.Write(payloadBytes)
	expected := mac.Sum(nil)
	actual, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || !hmac.Equal(expected, actual) {
		return "", fmt.Errorf("invalid token signature")
	}

	fields := strings.Split(string(payloadBytes), ":")
	if len(fields) != 3 {
		return "", fmt.Errorf("malformed token payload")
	}
	expires, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed token expiry")
	}
	if time.Now().Unix() >= expires {
		return "", fmt.Errorf("token expired")
	}
	return domain.UserID(fields[0]), nil
}

type userIDKey struct{}

// UserIDFrom returns the authenticated user id stored by RequireUser.
func UserIDFrom(ctx context.Context) domain.UserID {
	if v, ok := ctx.Value(userIDKey{}).(domain.UserID); ok {
		return v
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "UNAUTHORIZED", Message: "authentication required"}})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// RequireUser guards user endpoints with signed bearer tokens.
func (tm *TokenManager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}
		userID, err := tm.Validate(token)
		if err != nil {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

// RequireWorker guards the worker endpoints with a static token allow-list.
func RequireWorker(tokens []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			allowed[t] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[bearerToken(r)]; !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireWebhookSecret guards the scraper webhook with a Basic shared secret,
// matching what the trigger call advertised to the provider.
func RequireWebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Basic ") {
				unauthorized(w)
				return
			}
			got := strings.TrimSpace(strings.TrimPrefix(h, "Basic "))
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
