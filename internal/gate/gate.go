// Package gate decides, before navigating to protected content, whether the
// current session may open it, and where to send the user when it may not.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// State is a step of one navigation attempt.
type State string

const (
	StateIdle           State = "idle"
	StateCheckingAccess State = "checking_access"
	StateGranted        State = "granted"
	StateDenied         State = "denied"
	// StateSuppressed is returned to a second attempt on a target that is
	// already being checked. It never navigates.
	StateSuppressed State = "suppressed"
)

// DefaultTimeout applies when the configuration leaves the timeout unset.
const DefaultTimeout = 5 * time.Second

// Reasons attached to a Decision.
const (
	ReasonEntitled    = "entitled"
	ReasonNoSession   = "no_session"
	ReasonNotEntitled = "not_entitled"
	ReasonTimeout     = "timeout"
	ReasonNetwork     = "network_error"
	ReasonStatus      = "unexpected_status"
	ReasonDecode      = "bad_response"
	ReasonInFlight    = "in_flight"
	ReasonInvalid     = "invalid_target"
)

// Target is the content a user clicked on.
type Target struct {
	ContentType types.ContentType
	ContentID   string
	SectionID   string
	SubjectID   string
	Destination string
}

func (t Target) key() string {
	return t.ContentType.String() + "/" + t.ContentID + "/" + t.SectionID + "/" + t.SubjectID
}

// Decision is the terminal outcome of Navigate.
type Decision struct {
	State    State
	Location string
	Reason   string
}

// SessionSource yields the bearer token of the current session. An empty
// token means nobody is signed in.
type SessionSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticSession is a fixed token.
type StaticSession string

func (s StaticSession) Token(context.Context) (string, error) { return string(s), nil }

// Gate runs access checks against the backend over HTTP. Every failure is a
// denial followed by a payment redirect.
type Gate struct {
	backendURL  string
	paymentPage string
	subjectPage string
	client      *http.Client
	session     SessionSource
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New builds a Gate from configuration.
func New(cfg config.GateConfig, session SessionSource, logger *slog.Logger) *Gate {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	page := cfg.PaymentPage
	if page == "" {
		page = "section-payment.html"
	}
	subjectPage := cfg.SubjectPaymentPage
	if subjectPage == "" {
		subjectPage = "subject-payment.html"
	}

	return &Gate{
		backendURL:  strings.TrimRight(cfg.BackendURL, "/"),
		paymentPage: page,
		subjectPage: subjectPage,
		client:      &http.Client{Timeout: timeout},
		session:     session,
		logger:      logger,
		inflight:    make(map[string]struct{}),
	}
}

// Navigate walks Idle → CheckingAccess → Granted|Denied for one click.
func (g *Gate) Navigate(ctx context.Context, t Target) Decision {
	if !g.begin(t) {
		return Decision{State: StateSuppressed, Reason: ReasonInFlight}
	}
	defer g.end(t)

	hasAccess, reason := g.check(ctx, t)
	if hasAccess {
		return Decision{State: StateGranted, Location: t.Destination, Reason: ReasonEntitled}
	}

	g.logger.InfoContext(ctx, "navigation denied",
		slog.String("content_type", t.ContentType.String()),
		slog.String("content_id", t.ContentID),
		slog.String("reason", reason),
	)
	if t.ContentType == types.ContentTypeSubject {
		return Decision{State: StateDenied, Location: g.SubjectPaymentURL(t.SubjectID, t.Destination), Reason: reason}
	}
	return Decision{State: StateDenied, Location: g.PaymentURL(t.SectionID, t.Destination), Reason: reason}
}

// PaymentURL builds the payment page link that returns to next after activation.
func (g *Gate) PaymentURL(sectionID, next string) string {
	return PaymentURL(g.paymentPage, sectionID, next)
}

// SubjectPaymentURL is PaymentURL for the subject purchase page.
func (g *Gate) SubjectPaymentURL(subjectID, next string) string {
	return SubjectPaymentURL(g.subjectPage, subjectID, next)
}

// PaymentURL builds page?section=S&next=N, keeping that parameter order.
func PaymentURL(page, sectionID, next string) string {
	return paymentURL(page, "section", sectionID, next)
}

// SubjectPaymentURL builds page?subject=S&next=N.
func SubjectPaymentURL(page, subjectID, next string) string {
	return paymentURL(page, "subject", subjectID, next)
}

func paymentURL(page, param, id, next string) string {
	var b strings.Builder
	b.WriteString(page)
	b.WriteString("?")
	b.WriteString(param)
	b.WriteString("=")
	b.WriteString(url.QueryEscape(id))
	if next != "" {
		b.WriteString("&next=")
		b.WriteString(url.QueryEscape(next))
	}
	return b.String()
}

func (g *Gate) begin(t Target) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[t.key()]; busy {
		return false
	}
	g.inflight[t.key()] = struct{}{}
	return true
}

func (g *Gate) end(t Target) {
	g.mu.Lock()
	delete(g.inflight, t.key())
	g.mu.Unlock()
}

type verifyRequest struct {
	SectionID   string `json:"sectionId,omitempty"`
	SubjectID   string `json:"subjectId,omitempty"`
	ContentType string `json:"contentType"`
	ContentID   string `json:"contentId,omitempty"`
}

type verifyResponse struct {
	HasAccess *bool `json:"hasAccess"`
}

func (g *Gate) check(ctx context.Context, t Target) (bool, string) {
	body, ok := requestFor(t)
	if !ok {
		return false, ReasonInvalid
	}

	token, err := g.session.Token(ctx)
	if err != nil || token == "" {
		return false, ReasonNoSession
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return false, ReasonInvalid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.backendURL+"/api/verify-access", bytes.NewReader(payload))
	if err != nil {
		return false, ReasonNetwork
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return false, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, ReasonStatus
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil || out.HasAccess == nil {
		if err != nil && isTimeout(err) {
			return false, ReasonTimeout
		}
		return false, ReasonDecode
	}

	if !*out.HasAccess {
		return false, ReasonNotEntitled
	}
	return true, ReasonEntitled
}

func requestFor(t Target) (verifyRequest, bool) {
	switch {
	case t.ContentType == types.ContentTypeSection && t.SectionID != "":
		return verifyRequest{SectionID: t.SectionID, ContentType: t.ContentType.String()}, true
	case t.ContentType == types.ContentTypeSubject && t.SubjectID != "":
		return verifyRequest{SubjectID: t.SubjectID, ContentType: t.ContentType.String()}, true
	case t.ContentType.IsItem() && t.ContentID != "":
		return verifyRequest{ContentType: t.ContentType.String(), ContentID: t.ContentID}, true
	default:
		return verifyRequest{}, false
	}
}

func classify(err error) string {
	if isTimeout(err) {
		return ReasonTimeout
	}
	return ReasonNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// String renders a decision for CLI output.
func (d Decision) String() string {
	if d.Location == "" {
		return fmt.Sprintf("%s (%s)", d.State, d.Reason)
	}
	return fmt.Sprintf("%s (%s) -> %s", d.State, d.Reason, d.Location)
}
