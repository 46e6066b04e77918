package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Encoding selects how a digest is rendered on the wire.
type Encoding int

const (
	// Base64 is the standard padded base64 encoding used by webhook deliveries.
	Base64 Encoding = iota
	// Hex is lowercase hexadecimal, used by app proxy requests.
	Hex
)

// AppProxySignatureParam is the query parameter carrying the app proxy digest.
const AppProxySignatureParam = "signature"

// Digest returns the raw HMAC-SHA256 of payload under secret.
func Digest(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Sign returns the encoded HMAC-SHA256 of payload.
func Sign(secret, payload []byte, enc Encoding) string {
	sum := Digest(secret, payload)
	if enc == Hex {
		return hex.EncodeToString(sum)
	}
	return base64.StdEncoding.EncodeToString(sum)
}

// Verify reports whether supplied is the encoded HMAC-SHA256 of payload under secret.
// Comparison is constant time over the decoded digest. A supplied value that does not decode
// to a digest of the right length fails before any comparison.
func Verify(secret, payload []byte, supplied string, enc Encoding) bool {
	if len(secret) == 0 || supplied == "" {
		return false
	}

	given, ok := decode(strings.TrimSpace(supplied), enc)
	if !ok || len(given) != sha256.Size {
		return false
	}

	return hmac.Equal(Digest(secret, payload), given)
}

func decode(value string, enc Encoding) ([]byte, bool) {
	var (
		out []byte
		err error
	)
	switch enc {
	case Hex:
		out, err = hex.DecodeString(strings.ToLower(value))
	default:
		out, err = base64.StdEncoding.DecodeString(value)
	}
	if err != nil {
		return nil, false
	}
	return out, true
}

// AppProxyPayload renders query parameters into the string the platform signs for app proxy
// requests: every parameter except the signature, sorted by key, written as key=value with
// repeated values joined by commas in their original order, and no separator between pairs.
func AppProxyPayload(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == AppProxySignatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(query[k], ","))
	}
	return b.String()
}

// VerifyAppProxy checks the signature parameter of an app proxy query string.
func VerifyAppProxy(secret []byte, query url.Values) bool {
	supplied := query.Get(AppProxySignatureParam)
	if supplied == "" {
		return false
	}
	return Verify(secret, []byte(AppProxyPayload(query)), supplied, Hex)
}

// SignAppProxy returns a copy of query with a valid signature parameter set.
func SignAppProxy(secret []byte, query url.Values) url.Values {
	out := make(url.Values, len(query)+1)
	for k, v := range query {
		if k == AppProxySignatureParam {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	out.Set(AppProxySignatureParam, Sign(secret, []byte(AppProxyPayload(out)), Hex))
	return out
}
