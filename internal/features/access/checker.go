package access

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/metrics"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Reason explains a section-level decision. It is only exposed on the
// caller's own status endpoint, never on a denial of a specific item.
type Reason string

const (
	ReasonAdmin    Reason = "admin"
	ReasonFree     Reason = "free"
	ReasonEntitled Reason = "entitled"
	ReasonDenied   Reason = "denied"
	ReasonError    Reason = "error"
)

// Status is a section-level decision with its reason.
type Status struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    Reason `json:"reason"`
}

// Checker decides whether a user may access a content item. It holds no
// mutable state and is safe for concurrent use. Every failure denies.
type Checker struct {
	store  Store
	policy string
	logger *slog.Logger
}

// NewChecker builds a Checker for the given policy (config.AccessPolicyUnified
// or config.AccessPolicyStrict). Unknown policies fall back to strict.
func NewChecker(store Store, policy string, logger *slog.Logger) *Checker {
	if policy != config.AccessPolicyUnified {
		policy = config.AccessPolicyStrict
	}
	return &Checker{store: store, policy: policy, logger: logger}
}

// Policy returns the active policy name.
func (c *Checker) Policy() string { return c.policy }

// Check reports whether userID may access the item. For sections and subjects
// contentID is the group's own ID; for videos, quizzes and files the owning
// section is looked up first. Missing rows and store errors both yield false.
func (c *Checker) Check(ctx context.Context, userID uuid.UUID, ct types.ContentType, contentID string) bool {
	var status Status
	if ct == types.ContentTypeSubject {
		subjectID, err := ParseID(contentID)
		if err != nil {
			metrics.RecordAccessDecision(ct.String(), metrics.ResultDenied)
			return false
		}
		status = c.SubjectStatus(ctx, userID, subjectID)
	} else {
		sectionID, err := c.ResolveSection(ctx, ct, contentID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidContentID) {
				c.logger.ErrorContext(ctx, "content section lookup failed",
					slog.String("user_id", userID.String()),
					slog.String("content_type", ct.String()),
					slog.String("content_id", contentID),
					slog.String("error", err.Error()),
				)
				metrics.RecordAccessDecision(ct.String(), metrics.ResultError)
				return false
			}
			metrics.RecordAccessDecision(ct.String(), metrics.ResultDenied)
			return false
		}
		status = c.SectionStatus(ctx, userID, sectionID)
	}

	switch {
	case status.HasAccess:
		metrics.RecordAccessDecision(ct.String(), metrics.ResultGranted)
	case status.Reason == ReasonError:
		metrics.RecordAccessDecision(ct.String(), metrics.ResultError)
	default:
		metrics.RecordAccessDecision(ct.String(), metrics.ResultDenied)
	}
	return status.HasAccess
}

// ResolveSection maps a (type, id) pair to the owning section ID.
func (c *Checker) ResolveSection(ctx context.Context, ct types.ContentType, contentID string) (int64, error) {
	id, err := ParseID(contentID)
	if err != nil {
		return 0, err
	}

	if ct == types.ContentTypeSection {
		return id, nil
	}
	if !ct.IsItem() {
		return 0, ErrNotFound
	}

	return c.store.SectionOf(ctx, ct, id)
}

// SectionStatus evaluates the entitlement of userID to sectionID.
//
// Under the unified policy the admin role and free sections short-circuit to
// true. A failure while evaluating a short-circuit only skips it; the
// entitlement lookup still decides.
func (c *Checker) SectionStatus(ctx context.Context, userID uuid.UUID, sectionID int64) Status {
	return c.evaluate(ctx, userID, group{
		kind:     "section",
		id:       sectionID,
		price:    c.store.SectionPrice,
		entitled: c.store.HasEntitlement,
	})
}

// SubjectStatus is SectionStatus for a whole subject, decided by the
// subject's price and its subject_access rows.
func (c *Checker) SubjectStatus(ctx context.Context, userID uuid.UUID, subjectID int64) Status {
	return c.evaluate(ctx, userID, group{
		kind:     "subject",
		id:       subjectID,
		price:    c.store.SubjectPrice,
		entitled: c.store.HasSubjectEntitlement,
	})
}

type group struct {
	kind     string
	id       int64
	price    func(ctx context.Context, id int64) (int, error)
	entitled func(ctx context.Context, userID uuid.UUID, id int64) (bool, error)
}

func (c *Checker) evaluate(ctx context.Context, userID uuid.UUID, g group) Status {
	if c.policy == config.AccessPolicyUnified {
		if role, err := c.store.RoleOf(ctx, userID); err == nil && role == types.UserRoleAdmin {
			return Status{HasAccess: true, Reason: ReasonAdmin}
		}

		price, err := g.price(ctx, g.id)
		switch {
		case err == nil && price == 0:
			return Status{HasAccess: true, Reason: ReasonFree}
		case err != nil && !errors.Is(err, ErrNotFound):
			c.logger.WarnContext(ctx, g.kind+" price lookup failed",
				slog.Int64(g.kind+"_id", g.id),
				slog.String("error", err.Error()),
			)
		}
	}

	ok, err := g.entitled(ctx, userID, g.id)
	if err != nil {
		c.logger.ErrorContext(ctx, "entitlement lookup failed",
			slog.String("user_id", userID.String()),
			slog.String("kind", g.kind),
			slog.Int64("id", g.id),
			slog.String("error", err.Error()),
		)
		return Status{HasAccess: false, Reason: ReasonError}
	}
	if !ok {
		return Status{HasAccess: false, Reason: ReasonDenied}
	}
	return Status{HasAccess: true, Reason: ReasonEntitled}
}

// ParseID parses a positive decimal identifier.
func ParseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidContentID
	}
	return id, nil
}
