package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/dom/hero-arena/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	CallerKey    contextKey = "caller"
	TokenKindKey contextKey = "tokenKind"
)

// Identity is what a valid token proves about its bearer. UserID is set for
// player tokens only.
type Identity struct {
	Caller string
	Kind   string
	UserID uuid.UUID
}

var errMissingSubject = errors.New("missing 'sub' claim in token")

// Identify validates a raw token. Tokens without a kind claim are player
// tokens.
func Identify(authService *service.AuthService, token string) (*Identity, error) {
	claims, err := authService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	caller, ok := (*claims)["sub"].(string)
	if !ok || caller == "" {
		return nil, errMissingSubject
	}

	id := &Identity{Caller: caller, Kind: service.TokenKindPlayer}
	if kind, _ := (*claims)["kind"].(string); kind != "" {
		id.Kind = kind
	}
	if id.Kind == service.TokenKindPlayer {
		id.UserID, err = uuid.Parse(caller)
		if err != nil {
			return nil, fmt.Errorf("parse user ID: %w", err)
		}
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// Auth validates the bearer token and stores the caller's identity in the
// request context.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] %v", err)
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			id, err := Identify(authService, token)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] token validation failed: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, CallerKey, id.Caller)
	ctx = context.WithValue(ctx, TokenKindKey, id.Kind)
	if id.Kind == service.TokenKindPlayer {
		ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	}
	return ctx
}

// RequireService rejects requests that were not made with a service token.
func RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if kind, _ := r.Context().Value(TokenKindKey).(string); kind != service.TokenKindService {
			log.Printf("ERROR [middleware.RequireService] player token used on service route %s", r.URL.Path)
			http.Error(w, "Service token required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePlayer rejects requests that do not come from a player account.
func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			http.Error(w, "Player token required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetCaller returns the authenticated caller id.
func GetCaller(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(CallerKey).(string)
	return caller, ok && caller != ""
}
