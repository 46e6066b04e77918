package middleware

import (
	"html/template"
	"net/http"

	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// AppBridgeScript is the App Bridge loader both pages include.
const AppBridgeScript = "https://cdn.shopify.com/shopifycloud/app-bridge.js"

var bouncePage = template.Must(template.New("bounce").Parse(`<!DOCTYPE html>
<html>
<head>
<meta name="shopify-api-key" content="{{.APIKey}}">
<script src="{{.Script}}" data-api-key="{{.APIKey}}"></script>
</head>
<body></body>
</html>
`))

var exitIframePage = template.Must(template.New("exit-iframe").Parse(`<!DOCTYPE html>
<html>
<head>
<meta name="shopify-api-key" content="{{.APIKey}}">
<script src="{{.Script}}" data-api-key="{{.APIKey}}"></script>
<script>window.open({{.Destination}}, "_top");</script>
</head>
<body></body>
</html>
`))

type pageData struct {
	APIKey      string
	Script      string
	Destination string
}

// BouncePage serves the page the session token path points at. App Bridge loads inside the
// iframe, fetches a fresh session token and reloads the shopify-reload destination with it.
func BouncePage(apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, bouncePage, pageData{APIKey: apiKey, Script: AppBridgeScript})
	})
}

// ExitIframe serves the exit-iframe page. Destinations that are neither on the app's origin
// nor on the platform admin or a shop domain get a 400.
func ExitIframe(engine *goShopAuth.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		dest := r.URL.Query().Get(goShopAuth.QueryExitIframe)
		if !engine.Responder().ExitIframeAllowed(dest) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		writePage(w, exitIframePage, pageData{
			APIKey:      engine.Config().App.APIKey,
			Script:      AppBridgeScript,
			Destination: dest,
		})
	})
}

func writePage(w http.ResponseWriter, tmpl *template.Template, data pageData) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = tmpl.Execute(w, data)
}
