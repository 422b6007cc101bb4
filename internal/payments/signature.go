// Package payments verifies and reconciles asynchronous payment events
// from the external processor against the order workflow.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// DefaultTolerance is the accepted clock skew between the signature
// timestamp and receipt time.
const DefaultTolerance = 5 * time.Minute

// SignatureVerifier checks webhook signatures of the form
// "t=<unix>,v1=<hex>", where v1 is HMAC-SHA256 over "<unix>.<body>" with
// the shared secret. The timestamp bound rejects replayed deliveries.
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSignatureVerifier creates a verifier with the given shared secret.
func NewSignatureVerifier(secret []byte, tolerance time.Duration) *SignatureVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &SignatureVerifier{secret: secret, tolerance: tolerance, now: time.Now}
}

// Verify checks header against body. Every failure mode reports
// InvalidSignature; callers never learn which part failed.
func (v *SignatureVerifier) Verify(body []byte, header string) error {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		switch {
		case strings.HasPrefix(part, "t="):
			tsPart = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			sigPart = strings.TrimPrefix(part, "v1=")
		}
	}
	if tsPart == "" || sigPart == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "malformed signature header")
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "malformed signature header")
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature timestamp outside tolerance")
	}

	expected, err := hex.DecodeString(sigPart)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "malformed signature header")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(tsPart))
	mac.Write([]byte("."))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature mismatch")
	}
	return nil
}

// Sign produces a valid signature header for body at the given time. Used
// by tests and by the local processor simulator.
func (v *SignatureVerifier) Sign(body []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
