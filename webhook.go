package goShopAuth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
	"github.com/MrEthical07/goShopAuth/session"
	"github.com/MrEthical07/goShopAuth/signature"
)

// WebhookFormat is the header shape a delivery used.
type WebhookFormat string

const (
	// WebhookFormatLegacy uses X-Shopify-* headers.
	WebhookFormatLegacy WebhookFormat = "legacy"
	// WebhookFormatEvents uses lowercase shopify-* headers.
	WebhookFormatEvents WebhookFormat = "events"
)

// WebhookInvalidReason explains a failed validation.
type WebhookInvalidReason string

const (
	WebhookMissingBody    WebhookInvalidReason = "missing_body"
	WebhookMissingHeaders WebhookInvalidReason = "missing_headers"
	WebhookInvalidHMAC    WebhookInvalidReason = "invalid_hmac"
)

type webhookHeaderSet struct {
	hmac, topic, apiVersion, shop, id string
	subTopic, triggeredAt, name       string
	eventID, handle, action, resource string
}

var legacyWebhookHeaders = webhookHeaderSet{
	hmac:        "X-Shopify-Hmac-Sha256",
	topic:       "X-Shopify-Topic",
	apiVersion:  "X-Shopify-API-Version",
	shop:        "X-Shopify-Shop-Domain",
	id:          "X-Shopify-Webhook-Id",
	subTopic:    "X-Shopify-Sub-Topic",
	triggeredAt: "X-Shopify-Triggered-At",
	name:        "X-Shopify-Name",
	eventID:     "X-Shopify-Event-Id",
}

var eventsWebhookHeaders = webhookHeaderSet{
	hmac:        "shopify-hmac-sha256",
	topic:       "shopify-topic",
	apiVersion:  "shopify-api-version",
	shop:        "shopify-shop-domain",
	id:          "shopify-event-id",
	triggeredAt: "shopify-triggered-at",
	handle:      "shopify-handle",
	action:      "shopify-action",
	resource:    "shopify-resource-id",
}

// WebhookValidation is the typed result of ValidateWebhook. When Valid is false, Reason says
// why and MissingHeaders lists the absent required headers by their wire names.
type WebhookValidation struct {
	Valid          bool
	Reason         WebhookInvalidReason
	MissingHeaders []string
	Format         WebhookFormat

	// Topic is upper snake case, e.g. PRODUCTS_CREATE.
	Topic       string
	Shop        string
	HMAC        string
	APIVersion  string
	WebhookID   string
	EventID     string
	SubTopic    string
	TriggeredAt string
	Name        string
	Handle      string
	Action      string
	ResourceID  string
}

// Err returns nil for a valid delivery, or the sentinel matching Reason.
func (v WebhookValidation) Err() error {
	if v.Valid {
		return nil
	}
	switch v.Reason {
	case WebhookInvalidHMAC:
		return ErrInvalidSignature
	case WebhookMissingBody:
		return fmt.Errorf("%w: empty body", ErrMissingRequiredHeaders)
	}
	for _, name := range v.MissingHeaders {
		if strings.EqualFold(name, legacyWebhookHeaders.hmac) {
			return fmt.Errorf("%w: %w", ErrMissingRequiredHeaders, ErrMissingHMAC)
		}
	}
	return fmt.Errorf("%w: %s", ErrMissingRequiredHeaders, strings.Join(v.MissingHeaders, ", "))
}

// detectWebhookFormat picks the events shape only when its HMAC header is present and the
// legacy one is not.
func detectWebhookFormat(headers http.Header) (WebhookFormat, webhookHeaderSet) {
	if headers.Get(legacyWebhookHeaders.hmac) == "" && headers.Get(eventsWebhookHeaders.hmac) != "" {
		return WebhookFormatEvents, eventsWebhookHeaders
	}
	return WebhookFormatLegacy, legacyWebhookHeaders
}

// WebhookTopic converts a wire topic such as products/create to PRODUCTS_CREATE.
func WebhookTopic(raw string) string {
	return strings.ToUpper(strings.NewReplacer("/", "_", ".", "_", "-", "_", " ", "_").Replace(strings.TrimSpace(raw)))
}

func validateWebhook(secret []byte, rawBody []byte, headers http.Header) WebhookValidation {
	if headers == nil {
		headers = http.Header{}
	}
	format, names := detectWebhookFormat(headers)
	out := WebhookValidation{Format: format}

	if len(rawBody) == 0 {
		out.Reason = WebhookMissingBody
		return out
	}

	get := func(name string) string {
		if name == "" {
			return ""
		}
		return strings.TrimSpace(headers.Get(name))
	}

	required := []string{names.hmac, names.topic, names.apiVersion, names.shop, names.id}
	for _, name := range required {
		if get(name) == "" {
			out.MissingHeaders = append(out.MissingHeaders, name)
		}
	}
	if len(out.MissingHeaders) > 0 {
		out.Reason = WebhookMissingHeaders
		return out
	}

	out.HMAC = get(names.hmac)
	if !signature.Verify(secret, rawBody, out.HMAC, signature.Base64) {
		out.Reason = WebhookInvalidHMAC
		return out
	}

	out.Valid = true
	out.Topic = WebhookTopic(get(names.topic))
	out.Shop = get(names.shop)
	out.APIVersion = get(names.apiVersion)
	out.SubTopic = get(names.subTopic)
	out.TriggeredAt = get(names.triggeredAt)
	out.Name = get(names.name)
	out.Handle = get(names.handle)
	out.Action = get(names.action)
	out.ResourceID = get(names.resource)
	if format == WebhookFormatEvents {
		out.EventID = get(names.id)
	} else {
		out.WebhookID = get(names.id)
		out.EventID = get(names.eventID)
	}
	return out
}

// ValidateWebhook verifies the HMAC of a webhook delivery over the raw request body and
// extracts its headers. It never returns an error: invalid deliveries are reported through
// WebhookValidation.Reason.
func (e *Engine) ValidateWebhook(rawBody []byte, headers http.Header) WebhookValidation {
	v := validateWebhook([]byte(e.config.App.APISecret), rawBody, headers)
	if v.Valid {
		e.metricInc(MetricWebhookValid)
		return v
	}

	e.metricInc(MetricWebhookInvalid)
	e.config.Logger.Debug().
		Str("reason", string(v.Reason)).
		Strs("missing_headers", v.MissingHeaders).
		Str("format", string(v.Format)).
		Msg("webhook rejected")
	e.emitAudit(context.Background(), auditEventWebhookInvalid, false, "", "", v.Err(), func() map[string]string {
		return map[string]string{
			"reason": string(v.Reason),
			"format": string(v.Format),
		}
	})
	return v
}

// AuthenticateWebhook validates a delivery and attaches the shop's offline session when one
// exists. Signature and header failures return ErrInvalidSignature or ErrMissingRequiredHeaders;
// store failures wrap ErrTransientFailure.
func (e *Engine) AuthenticateWebhook(ctx context.Context, rawBody []byte, headers http.Header) (*WebhookContext, error) {
	v := e.ValidateWebhook(rawBody, headers)
	if !v.Valid {
		return nil, v.Err()
	}

	shop, ok := shopdomain.Sanitize(v.Shop, e.config.App.ExtraShopDomains...)
	if !ok {
		return nil, ErrInvalidShop
	}
	v.Shop = shop

	sess, err := e.store.Load(ctx, session.OfflineID(shop))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}

	return &WebhookContext{
		WebhookValidation: v,
		Payload:           rawBody,
		Session:           sess,
	}, nil
}
