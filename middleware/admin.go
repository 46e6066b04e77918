package middleware

import (
	"errors"
	"net/http"

	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// Admin returns middleware that authenticates admin requests with engine.AuthenticateAdmin.
//
// A *goShopAuth.RecoveryDecision is written as is. Any other failure is a 500 the embedded
// host may retry.
func Admin(engine *goShopAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			admin, err := engine.AuthenticateAdmin(r)
			if err != nil {
				var decision *goShopAuth.RecoveryDecision
				if errors.As(err, &decision) {
					decision.ServeHTTP(w, r)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := goShopAuth.WithAdminContext(r.Context(), admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
