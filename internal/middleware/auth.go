package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/store"
)

// RequireAuth gates a request on `Authorization: Bearer <token>`: the token
// must not be blacklisted, must verify, must postdate the user's reset
// cutoff, and must resolve to an existing user. On success the acting
// user's identity (including derived family membership) is attached to the
// request context. Failure is terminal for the request.
func RequireAuth(tokens *auth.TokenService, users *store.UserStore, families *store.FamilyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Not authorized, no token provided")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" {
				unauthorized(w, "Not authorized, no token provided")
				return
			}

			if tokens.IsBlacklisted(token) {
				unauthorized(w, "Token has been invalidated")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					unauthorized(w, "Token expired")
				} else {
					unauthorized(w, "Invalid token")
				}
				return
			}

			user, err := users.GetByID(claims.UserID)
			if err != nil {
				writeAuthJSON(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if user == nil {
				unauthorized(w, "User not found")
				return
			}

			// Tokens issued before the user's password-reset cutoff are
			// swept without ever touching the blacklist.
			if user.TokenInvalidBefore != nil && claims.IssuedAt != nil &&
				claims.IssuedAt.Time.Before(*user.TokenInvalidBefore) {
				unauthorized(w, "Token has been invalidated")
				return
			}

			ac := auth.AuthContext{
				UserID:   user.ID,
				Username: user.Username,
				Email:    user.Email,
				Role:     user.Role,
				Token:    token,
			}

			membership, err := families.GetMembership(user.ID)
			if err != nil {
				writeAuthJSON(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if membership != nil {
				ac.FamilyID = membership.FamilyID
				ac.FamilyRole = membership.Role
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeAuthJSON(w, http.StatusUnauthorized, message)
}

func writeAuthJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
