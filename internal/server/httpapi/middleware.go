package httpapi

import (
	"context"
	"net/http"
	"strings"

	"fieldvault/internal/common"
)

type ctxKey string

const operatorIDKey ctxKey = "operatorID"

// requireAuth verifies the bearer token and stashes the operator in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		operatorID, err := s.auth.VerifyToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
		next(w, r.WithContext(ctx))
	})
}

func operatorFromContext(ctx context.Context) string {
	operatorID, _ := ctx.Value(operatorIDKey).(string)
	return operatorID
}
