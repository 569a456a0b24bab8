package mergeticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// CookieName is the HTTP cookie the ticket travels in.
	CookieName = "merge_token"
	// TTL bounds how long an issued ticket stays verifiable.
	TTL = 5 * time.Minute
)

// ErrTicketInvalid is the only failure a caller ever sees. Signature
// mismatch, malformed token and expiry all collapse into it so the response
// cannot be used as an oracle for which check failed.
var ErrTicketInvalid = errors.New("merge ticket invalid")

// Payload binds a pending merge to the user that must survive it and the
// provider the follow-up re-authentication has to come from.
type Payload struct {
	TargetUserID string
	Provider     string
	IssuedAt     int64
}

type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (c *Codec) SetNowFunc(now func() time.Time) {
	c.now = now
}

// Issue serializes the payload, tags it with HMAC-SHA256 and encodes both
// halves for cookie transport. The ticket is a bearer token: the flow spans
// an external redirect round-trip, so nothing server-side can be threaded
// through; the tag makes the client-held artifact tamper-evident.
func (c *Codec) Issue(targetUserID, provider string) (string, error) {
	if targetUserID == "" || provider == "" {
		return "", ErrTicketInvalid
	}
	if strings.ContainsRune(targetUserID, '|') || strings.ContainsRune(provider, '|') {
		return "", ErrTicketInvalid
	}
	payload := encodePayload(Payload{
		TargetUserID: targetUserID,
		Provider:     provider,
		IssuedAt:     c.now().Unix(),
	})
	tag := c.sign(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(tag), nil
}

// Verify decodes the token, recomputes the tag in constant time and enforces
// the validity window. On any failure it returns ErrTicketInvalid and nothing
// else.
func (c *Codec) Verify(token string) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, ErrTicketInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrTicketInvalid
	}
	tag, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTicketInvalid
	}
	if !hmac.Equal(tag, c.sign(payload)) {
		return nil, ErrTicketInvalid
	}
	parsed, err := decodePayload(payload)
	if err != nil {
		return nil, ErrTicketInvalid
	}
	elapsed := c.now().Unix() - parsed.IssuedAt
	if elapsed < 0 || elapsed > int64(TTL/time.Second) {
		return nil, ErrTicketInvalid
	}
	return parsed, nil
}

func (c *Codec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func encodePayload(p Payload) []byte {
	return []byte(strings.Join([]string{p.TargetUserID, p.Provider, strconv.FormatInt(p.IssuedAt, 10)}, "|"))
}

func decodePayload(raw []byte) (*Payload, error) {
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, ErrTicketInvalid
	}
	issuedAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrTicketInvalid
	}
	return &Payload{TargetUserID: parts[0], Provider: parts[1], IssuedAt: issuedAt}, nil
}
