package capability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/pkg/metrics"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Verification results recorded in metrics.
const (
	ResultValid           = "valid"
	ResultMalformed       = "malformed"
	ResultExpired         = "expired"
	ResultBadSignature    = "bad_signature"
	ResultSubjectMismatch = "subject_mismatch"
	ResultRevoked         = "revoked"
	ResultError           = "error"
)

// AccessChecker is the entitlement decision the service runs before signing.
// ResolveSection maps a capability's content to its section for section-level
// revocations.
type AccessChecker interface {
	Check(ctx context.Context, userID uuid.UUID, ct types.ContentType, contentID string) bool
	ResolveSection(ctx context.Context, ct types.ContentType, contentID string) (int64, error)
}

// Service issues capabilities to entitled users and validates them on return.
type Service struct {
	checker     AccessChecker
	signer      *Signer
	revocations Revocations
	logger      *slog.Logger
}

// NewService wires the checker, signer and denylist together.
func NewService(checker AccessChecker, signer *Signer, revocations Revocations, logger *slog.Logger) *Service {
	return &Service{checker: checker, signer: signer, revocations: revocations, logger: logger}
}

// Issue checks access for (userID, ct, contentID) and signs a capability in the
// same call. A negative check yields ErrAccessDenied.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, ct types.ContentType, contentID string) (Issued, error) {
	if !ct.IsItem() {
		return Issued{}, ErrUnsupportedType
	}
	if !s.checker.Check(ctx, userID, ct, contentID) {
		return Issued{}, ErrAccessDenied
	}

	issued, err := s.signer.Issue(contentID, ct, userID.String())
	if err != nil {
		return Issued{}, err
	}

	metrics.RecordCapabilityIssued(ct.String())
	return issued, nil
}

// Validate verifies c, checks the denylist and binds it to sessionUserID. The
// returned error names the failed step; nil means valid.
func (s *Service) Validate(ctx context.Context, sessionUserID uuid.UUID, c Capability) error {
	err := s.validate(ctx, sessionUserID, c)
	metrics.RecordCapabilityVerification(resultOf(err))
	return err
}

func (s *Service) validate(ctx context.Context, sessionUserID uuid.UUID, c Capability) error {
	if err := s.signer.Check(c); err != nil {
		return err
	}

	if c.UserID != sessionUserID.String() {
		return ErrSubjectMismatch
	}

	revoked, err := s.revocations.IsRevoked(ctx, c, s.signer.IssuedAt(c), s.sectionOf(c))
	if err != nil {
		s.logger.ErrorContext(ctx, "revocation lookup failed",
			slog.String("user_id", c.UserID),
			slog.String("error", err.Error()),
		)
		// Fail closed: an unreadable denylist counts as revoked.
		return errors.Join(ErrRevoked, err)
	}
	if revoked {
		return ErrRevoked
	}

	return nil
}

// Revoke blocks a single capability. Only genuinely signed capabilities are
// recorded; an already expired one needs nothing.
func (s *Service) Revoke(ctx context.Context, c Capability) error {
	if err := s.signer.Check(c); err != nil {
		if errors.Is(err, ErrExpired) {
			return nil
		}
		return err
	}
	return s.revocations.RevokeSignature(ctx, c.Signature, c.ExpiresAt())
}

// RevokeUser blocks every capability issued to userID up to now.
func (s *Service) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	return s.revocations.RevokeUser(ctx, userID.String(), s.signer.Now())
}

// RevokeSection blocks the capabilities issued to userID up to now for content
// in sectionID. Capabilities for other sections stay valid.
func (s *Service) RevokeSection(ctx context.Context, userID uuid.UUID, sectionID int64) error {
	return s.revocations.RevokeUserSection(ctx, userID.String(), sectionID, s.signer.Now())
}

func (s *Service) sectionOf(c Capability) SectionResolver {
	return func(ctx context.Context) (int64, error) {
		ct, err := types.ParseContentType(c.ContentType)
		if err != nil {
			return 0, err
		}
		return s.checker.ResolveSection(ctx, ct, c.ContentID)
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultValid
	case errors.Is(err, ErrMalformed):
		return ResultMalformed
	case errors.Is(err, ErrExpired):
		return ResultExpired
	case errors.Is(err, ErrBadSignature):
		return ResultBadSignature
	case errors.Is(err, ErrSubjectMismatch):
		return ResultSubjectMismatch
	case err == ErrRevoked:
		return ResultRevoked
	default:
		return ResultError
	}
}
