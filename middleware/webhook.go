package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// MaxWebhookBodyBytes caps how much of a webhook body is read for verification.
const MaxWebhookBodyBytes = 5 << 20

// Webhook returns middleware that verifies webhook deliveries. The raw body is restored on the
// request so the wrapped handler can decode it.
//
// Forged deliveries get 401, incomplete ones 400, and store failures 500 so the platform
// redelivers.
func Webhook(engine *goShopAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", http.MethodPost)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			hook, err := engine.AuthenticateWebhook(r.Context(), body, r.Header)
			if err != nil {
				http.Error(w, http.StatusText(webhookStatus(err)), webhookStatus(err))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := goShopAuth.WithWebhookContext(r.Context(), hook)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func webhookStatus(err error) int {
	switch {
	case errors.Is(err, goShopAuth.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, goShopAuth.ErrMissingRequiredHeaders),
		errors.Is(err, goShopAuth.ErrInvalidShop):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
