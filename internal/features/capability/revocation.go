package capability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mo-amir99/lms-access-gateway/pkg/cache"
)

const (
	signatureKeyPrefix    = "capability:revoked:sig:"
	userKeyPrefix         = "capability:revoked:user:"
	sectionKeyPrefix      = "capability:revoked:section:"
	userSectionsKeyPrefix = "capability:revoked:sections:"

	ttlKey       = "capability:ttl"
	ttlShadowKey = "capability:ttl:shadow"
)

// SectionResolver returns the section owning the capability's content. It is
// only called when the user has at least one live section cutoff.
type SectionResolver func(ctx context.Context) (int64, error)

// Revocations is a denylist consulted after a capability verifies.
type Revocations interface {
	// RevokeSignature blocks one capability until it would have expired anyway.
	RevokeSignature(ctx context.Context, signature string, until time.Time) error
	// RevokeUser blocks every capability of userID issued at or before at.
	RevokeUser(ctx context.Context, userID string, at time.Time) error
	// RevokeUserSection blocks capabilities of userID for content in sectionID
	// issued at or before at.
	RevokeUserSection(ctx context.Context, userID string, sectionID int64, at time.Time) error
	IsRevoked(ctx context.Context, c Capability, issuedAt time.Time, section SectionResolver) (bool, error)
}

// RedisRevocations keeps the denylist in redis. Entries expire on their own
// once no capability they cover can still be valid. With a disabled client
// nothing is ever revoked.
type RedisRevocations struct {
	cache cache.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisRevocations builds a denylist for capabilities with the given TTL.
func NewRedisRevocations(client cache.Client, ttl time.Duration) *RedisRevocations {
	return &RedisRevocations{cache: client, ttl: ttl, now: time.Now}
}

func sectionKey(userID string, sectionID int64) string {
	return sectionKeyPrefix + userID + ":" + strconv.FormatInt(sectionID, 10)
}

func (r *RedisRevocations) RevokeSignature(ctx context.Context, signature string, until time.Time) error {
	remaining := until.Sub(r.now())
	if remaining <= 0 {
		return nil
	}
	// Round up so the entry never lapses before the capability does.
	remaining = remaining.Truncate(time.Millisecond) + time.Millisecond
	if err := r.cache.Set(ctx, signatureKeyPrefix+signature, "1", remaining); err != nil {
		return fmt.Errorf("revoke signature: %w", err)
	}
	return nil
}

func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, at time.Time) error {
	window, err := r.window(ctx)
	if err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	cutoff := strconv.FormatInt(at.UnixMilli(), 10)
	if err := r.cache.Set(ctx, userKeyPrefix+userID, cutoff, window+time.Second); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	return nil
}

func (r *RedisRevocations) RevokeUserSection(ctx context.Context, userID string, sectionID int64, at time.Time) error {
	window, err := r.window(ctx)
	if err != nil {
		return fmt.Errorf("revoke user section: %w", err)
	}
	cutoff := strconv.FormatInt(at.UnixMilli(), 10)
	if err := r.cache.Set(ctx, sectionKey(userID, sectionID), cutoff, window+time.Second); err != nil {
		return fmt.Errorf("revoke user section: %w", err)
	}
	// The marker outlives every section key written before it.
	if err := r.cache.Set(ctx, userSectionsKeyPrefix+userID, "1", window+time.Second); err != nil {
		return fmt.Errorf("revoke user section: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, c Capability, issuedAt time.Time, section SectionResolver) (bool, error) {
	if !r.cache.Enabled() {
		return false, nil
	}

	n, err := r.cache.Exists(ctx, signatureKeyPrefix+c.Signature)
	if err != nil {
		return true, fmt.Errorf("check signature revocation: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	revoked, err := r.beforeCutoff(ctx, userKeyPrefix+c.UserID, issuedAt)
	if err != nil || revoked {
		return true, err
	}

	if section == nil {
		return false, nil
	}
	n, err = r.cache.Exists(ctx, userSectionsKeyPrefix+c.UserID)
	if err != nil {
		return true, fmt.Errorf("check section revocations: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	sectionID, err := section(ctx)
	if err != nil {
		return true, fmt.Errorf("resolve section: %w", err)
	}
	revoked, err = r.beforeCutoff(ctx, sectionKey(c.UserID, sectionID), issuedAt)
	if err != nil {
		return true, err
	}
	return revoked, nil
}

// beforeCutoff reports whether issuedAt is at or before the cutoff stored
// under key. A missing key revokes nothing.
func (r *RedisRevocations) beforeCutoff(ctx context.Context, key string, issuedAt time.Time) (bool, error) {
	raw, err := r.cache.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
		return false, nil
	case err != nil:
		return true, fmt.Errorf("check revocation cutoff: %w", err)
	}

	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, fmt.Errorf("parse revocation cutoff %q: %w", raw, err)
	}

	// issuedAt was derived with the current TTL. While capabilities minted
	// under a longer TTL may still be live, assume the longer one.
	window, err := r.window(ctx)
	if err != nil {
		return true, err
	}
	issuedAt = issuedAt.Add(r.ttl - window)

	return issuedAt.UnixMilli() <= cutoff, nil
}

// RecordTTL stores the current capability TTL and returns the one recorded
// before it, or zero on first use. When the TTL shrank, the previous value is
// kept as a shadow until every capability minted under it has expired.
func (r *RedisRevocations) RecordTTL(ctx context.Context) (time.Duration, error) {
	if !r.cache.Enabled() {
		return 0, nil
	}

	previous, err := r.readTTL(ctx, ttlKey)
	if err != nil {
		return 0, err
	}

	if previous > r.ttl {
		shadow, err := r.readTTL(ctx, ttlShadowKey)
		if err != nil {
			return previous, err
		}
		if previous > shadow {
			ms := strconv.FormatInt(previous.Milliseconds(), 10)
			if err := r.cache.Set(ctx, ttlShadowKey, ms, previous+time.Second); err != nil {
				return previous, fmt.Errorf("record ttl shadow: %w", err)
			}
		}
	}

	ms := strconv.FormatInt(r.ttl.Milliseconds(), 10)
	if err := r.cache.Set(ctx, ttlKey, ms, 0); err != nil {
		return previous, fmt.Errorf("record ttl: %w", err)
	}
	return previous, nil
}

// window is the longest TTL a still-valid capability may have been minted with.
func (r *RedisRevocations) window(ctx context.Context) (time.Duration, error) {
	if !r.cache.Enabled() {
		return r.ttl, nil
	}
	shadow, err := r.readTTL(ctx, ttlShadowKey)
	if err != nil {
		return r.ttl, err
	}
	if shadow > r.ttl {
		return shadow, nil
	}
	return r.ttl, nil
}

func (r *RedisRevocations) readTTL(ctx context.Context, key string) (time.Duration, error) {
	raw, err := r.cache.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
