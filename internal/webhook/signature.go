package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pix-service/internal/apperror"
)

// Verifier checks HMAC-SHA256 signatures computed over the raw request body.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts a bare hex digest, "sha256=<hex>", or a comma separated
// list holding "v1=<hex>". body must be the bytes exactly as received.
func (v *Verifier) Verify(body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return apperror.Authenticity("missing signature header")
	}

	candidate, ok := digestFromHeader(header)
	if !ok {
		return apperror.Authenticity("malformed signature header")
	}

	got, err := hex.DecodeString(candidate)
	if err != nil {
		return apperror.Authenticity("signature is not hex encoded")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return apperror.Authenticity("signature mismatch")
	}
	return nil
}

func digestFromHeader(header string) (string, bool) {
	if !strings.Contains(header, "=") {
		return header, true
	}
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "sha256", "v1":
			return strings.ToLower(strings.TrimSpace(value)), true
		}
	}
	return "", false
}
