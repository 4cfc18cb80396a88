// Package token signs serve tokens. A token is issued alongside each served
// ad and presented back with delivery events, so event attribution uses the
// identifiers the server signed rather than whatever the client claims.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

var nowFn = time.Now

// Serve is the signed identity of a served ad.
type Serve struct {
	AdType             string
	CreativeInstanceID string
	CreativeSetID      string
	CampaignID         string
	AdvertiserID       string
	IssuedAt           time.Time
}

// payload structure for encoding/decoding
type payload struct {
	AdType             string `json:"a"`
	CreativeInstanceID string `json:"ci"`
	CreativeSetID      string `json:"cs"`
	CampaignID         string `json:"cp"`
	AdvertiserID       string `json:"av"`
	TS                 int64  `json:"t"`
}

// Generate creates a signed token for the served ad.
func Generate(s Serve, secret []byte) (string, error) {
	pl := payload{
		AdType:             s.AdType,
		CreativeInstanceID: s.CreativeInstanceID,
		CreativeSetID:      s.CreativeSetID,
		CampaignID:         s.CampaignID,
		AdvertiserID:       s.AdvertiserID,
		TS:                 nowFn().Unix(),
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(sig), nil
}

// Verify checks token integrity and expiry and returns the signed serve
// identity. A ttl of zero disables the expiry check.
func Verify(tok string, secret []byte, ttl time.Duration) (Serve, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return Serve{}, ErrInvalid
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return Serve{}, ErrInvalid
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return Serve{}, ErrInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Serve{}, ErrInvalid
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return Serve{}, ErrInvalid
	}
	issued := time.Unix(pl.TS, 0)
	if ttl > 0 && nowFn().Sub(issued) > ttl {
		return Serve{}, ErrExpired
	}
	return Serve{
		AdType:             pl.AdType,
		CreativeInstanceID: pl.CreativeInstanceID,
		CreativeSetID:      pl.CreativeSetID,
		CampaignID:         pl.CampaignID,
		AdvertiserID:       pl.AdvertiserID,
		IssuedAt:           issued,
	}, nil
}
