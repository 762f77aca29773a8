// Package signing produces the HMAC-SHA256 signature headers attached to
// deliveries for webhooks that carry a secret. Receivers verify the
// signature over "<unix timestamp>.<payload>" to authenticate the sender
// and bound replay windows.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const scheme = "v1"

func Sign(secret string, payload []byte) (signature string, timestamp int64) {
	return signAt(secret, payload, time.Now().Unix())
}

func signAt(secret string, payload []byte, ts int64) (string, int64) {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("%s=%s", scheme, hex.EncodeToString(mac.Sum(nil))), ts
}

func Verify(secret string, payload []byte, timestamp int64, signature string) bool {
	expected, _ := signAt(secret, payload, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}
