package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/auth"
)

type contextKey string

const (
	accountContextKey = contextKey("account")
	claimsContextKey  = contextKey("claims")
)

// WithAccount stores the resolved caller account in ctx.
func WithAccount(ctx context.Context, acct *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, acct)
}

// AccountFromContext returns the caller account set by the auth middleware.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	acct, ok := ctx.Value(accountContextKey).(*model.Account)
	return acct, ok && acct != nil
}

// WithClaims stores validated token claims in ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the validated token claims.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// caller writes 401 and returns false when no account is attached.
func caller(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return acct, true
}

// pathID parses a positive integer route variable.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
