package middleware

import (
	"errors"
	"net/http"

	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// AppProxy returns middleware that verifies app proxy requests forwarded by the storefront.
func AppProxy(engine *goShopAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			proxy, err := engine.AuthenticateAppProxy(r.Context(), r.URL.Query())
			if err != nil {
				status := http.StatusInternalServerError
				switch {
				case errors.Is(err, goShopAuth.ErrInvalidSignature),
					errors.Is(err, goShopAuth.ErrMissingHMAC):
					status = http.StatusUnauthorized
				case errors.Is(err, goShopAuth.ErrMissingShop),
					errors.Is(err, goShopAuth.ErrInvalidShop):
					status = http.StatusBadRequest
				}
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx := goShopAuth.WithAppProxyContext(r.Context(), proxy)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
