package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const SessionUserKey contextKey = "sessionUserID"

// AuthMiddleware validates session tokens and puts the authenticated
// user's Discord ID (the token subject) into the request context.
// Mutating routes sit behind this; ownership itself is checked per
// request with IsOwner.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
			Token: token,
		})
		if err != nil {
			// Verifier internals stay in the log, not the response.
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), SessionUserKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionUserID extracts the authenticated user's ID from context.
func GetSessionUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(SessionUserKey).(string)
	return userID, ok
}

// IsOwner is the authorization predicate for per-user writes: the session
// user must be the user whose record is being touched.
func IsOwner(ctx context.Context, userID string) bool {
	sessionUser, ok := GetSessionUserID(ctx)
	return ok && sessionUser == userID
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(payload)
}
