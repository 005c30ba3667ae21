package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

// ProvidePool makes pool reachable through composables.UseTx for every request.
// Services open their own transactions; there is no per-request transaction.
func ProvidePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// WithOperator reads the acting employee id set by the upstream auth proxy.
// Requests without a valid header proceed without an operator.
func WithOperator(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				composables.UseLogger(r.Context()).WithField("header", header).Warn("ignoring malformed operator header")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithOperator(r.Context(), uint(id))))
		})
	}
}
