// Package auth implements the opaque bearer tokens used by the Yurai API.
//
// A token is base64url(JSON{user_id, iat}) + "." + the first 16 hex
// characters of HMAC-SHA256(secret, encoded payload). The format is a wire
// contract shared with the capture clients; tokens carry no project scope
// and no expiry.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// signatureLen is the number of hex characters kept from the HMAC digest.
const signatureLen = 16

// Codec generates and verifies bearer tokens with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a token codec from the configured AUTH_SECRET.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

type tokenPayload struct {
	UserID   string `json:"user_id"`
	IssuedAt int64  `json:"iat"`
}

// Generate creates a signed token for userID.
func (c *Codec) Generate(userID string) (string, error) {
	raw, err := json.Marshal(tokenPayload{UserID: userID, IssuedAt: time.Now().Unix()})
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(encoded), nil
}

// Decode returns the user_id embedded in token, or false if the token is
// malformed or its signature does not verify. The signature is checked in
// constant time before the payload is decoded.
func (c *Codec) Decode(token string) (string, bool) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", false
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", false
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}
	if payload.UserID == "" {
		return "", false
	}
	return payload.UserID, true
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLen]
}
