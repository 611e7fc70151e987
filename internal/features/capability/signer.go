package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

const delimiter = ":"

// Capability is a signed, time-boxed grant of one content item to one user.
// It is never stored; validity is recomputed from the signature and expiry.
type Capability struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	UserID      string `json:"userId"`
	Expires     int64  `json:"expires"`
	Signature   string `json:"signature"`
}

// ExpiresAt returns the expiry instant.
func (c Capability) ExpiresAt() time.Time {
	return time.UnixMilli(c.Expires).UTC()
}

// Issued is the result of signing a capability.
type Issued struct {
	Capability Capability
	ExpiresAt  time.Time
}

// Signer mints and verifies capabilities with HMAC-SHA256. The secret is fixed
// for the life of the Signer.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer using the wall clock.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the signer reading time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the lifetime of issued capabilities.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Now returns the signer's current time.
func (s *Signer) Now() time.Time { return s.now() }

// Issue signs (contentID, contentType, userID) with expiry now+TTL. It does not
// check entitlement; callers run the access check first.
func (s *Signer) Issue(contentID string, contentType types.ContentType, userID string) (Issued, error) {
	if !contentType.IsItem() {
		return Issued{}, ErrUnsupportedType
	}
	if !validField(contentID) || !validField(userID) {
		return Issued{}, ErrMalformed
	}

	expires := s.now().Add(s.ttl).UnixMilli()
	c := Capability{
		ContentID:   contentID,
		ContentType: contentType.String(),
		UserID:      userID,
		Expires:     expires,
	}
	c.Signature = s.sign(c)

	return Issued{Capability: c, ExpiresAt: c.ExpiresAt()}, nil
}

// Check validates structure, expiry and signature, in that order. A capability
// is valid through its exact expiry millisecond.
func (s *Signer) Check(c Capability) error {
	if !validField(c.ContentID) || !validField(c.ContentType) || !validField(c.UserID) ||
		c.Expires <= 0 || c.Signature == "" {
		return ErrMalformed
	}

	if s.now().UnixMilli() > c.Expires {
		return ErrExpired
	}

	expected := s.sign(c)
	if !hmac.Equal([]byte(c.Signature), []byte(expected)) {
		return ErrBadSignature
	}

	return nil
}

// Verify reports whether Check passes. Subject binding is the caller's job.
func (s *Signer) Verify(c Capability) bool {
	return s.Check(c) == nil
}

// IssuedAt derives the issue instant from the expiry.
func (s *Signer) IssuedAt(c Capability) time.Time {
	return c.ExpiresAt().Add(-s.ttl)
}

func (s *Signer) sign(c Capability) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical(c)))
	return hex.EncodeToString(mac.Sum(nil))
}

func canonical(c Capability) string {
	return strings.Join([]string{
		c.ContentID,
		c.ContentType,
		c.UserID,
		strconv.FormatInt(c.Expires, 10),
	}, delimiter)
}

// Fields must be non-empty and free of the delimiter so the payload splits one way only.
func validField(v string) bool {
	return v != "" && !strings.Contains(v, delimiter)
}
