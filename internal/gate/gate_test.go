package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

const token = "session-token"

func newGate(t *testing.T, handler http.HandlerFunc, session SessionSource, timeout time.Duration) *Gate {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.GateConfig{
		BackendURL:         srv.URL + "/",
		Timeout:            timeout,
		PaymentPage:        "section-payment.html",
		SubjectPaymentPage: "subject-payment.html",
	}, session, logger.Discard())
}

func accessServer(t *testing.T, allowed map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/verify-access", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		key := body.ContentType + ":" + body.ContentID + body.SectionID + body.SubjectID

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"hasAccess": allowed[key]})
	}
}

var videoTarget = Target{
	ContentType: types.ContentTypeVideo,
	ContentID:   "101",
	SectionID:   "7",
	Destination: "video-player.html?id=101",
}

func TestNavigateGranted(t *testing.T) {
	g := newGate(t, accessServer(t, map[string]bool{"video:101": true}), StaticSession(token), time.Second)

	d := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateGranted, d.State)
	assert.Equal(t, "video-player.html?id=101", d.Location)
}

func TestNavigateDeniedRedirectsToPayment(t *testing.T) {
	g := newGate(t, accessServer(t, map[string]bool{}), StaticSession(token), time.Second)

	d := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, ReasonNotEntitled, d.Reason)
	assert.Equal(t, "section-payment.html?section=7&next=video-player.html%3Fid%3D101", d.Location)
}

func TestNavigateSection(t *testing.T) {
	g := newGate(t, accessServer(t, map[string]bool{"section:7": true}), StaticSession(token), time.Second)

	d := g.Navigate(context.Background(), Target{ContentType: types.ContentTypeSection, SectionID: "7", Destination: "section.html?id=7"})
	assert.Equal(t, StateGranted, d.State)
}

func TestNavigateFailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		session SessionSource
		reason  string
	}{
		{
			name:    "no session",
			handler: accessServer(t, map[string]bool{"video:101": true}),
			session: StaticSession(""),
			reason:  ReasonNoSession,
		},
		{
			name:    "session error",
			handler: accessServer(t, map[string]bool{"video:101": true}),
			session: sessionFunc(func(context.Context) (string, error) { return "", errors.New("storage locked") }),
			reason:  ReasonNoSession,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			session: StaticSession(token),
			reason:  ReasonStatus,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"hasAccess":true}`))
			},
			session: StaticSession(token),
			reason:  ReasonStatus,
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
			session: StaticSession(token),
			reason:  ReasonDecode,
		},
		{
			name:    "missing field",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"valid":true}`)) },
			session: StaticSession(token),
			reason:  ReasonDecode,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGate(t, tc.handler, tc.session, time.Second)
			d := g.Navigate(context.Background(), videoTarget)
			assert.Equal(t, StateDenied, d.State)
			assert.Equal(t, tc.reason, d.Reason)
			assert.Contains(t, d.Location, "section-payment.html?section=7")
		})
	}
}

func TestNavigateTimeoutIsDenial(t *testing.T) {
	release := make(chan struct{})
	g := newGate(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{"hasAccess":true}`))
	}, StaticSession(token), 50*time.Millisecond)
	defer close(release)

	d := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, ReasonTimeout, d.Reason)
}

func TestNavigateNetworkErrorIsDenial(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	g := New(config.GateConfig{BackendURL: addr, Timeout: time.Second}, StaticSession(token), logger.Discard())
	d := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, ReasonNetwork, d.Reason)
}

func TestNavigateInvalidTarget(t *testing.T) {
	var calls int32
	g := newGate(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, StaticSession(token), time.Second)

	d := g.Navigate(context.Background(), Target{ContentType: types.ContentTypeQuiz, SectionID: "7"})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, ReasonInvalid, d.Reason)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNavigateSuppressesConcurrentDuplicate(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	g := newGate(t, func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() { close(entered) })
		<-release
		_, _ = w.Write([]byte(`{"hasAccess":true}`))
	}, StaticSession(token), 5*time.Second)

	first := make(chan Decision, 1)
	go func() { first <- g.Navigate(context.Background(), videoTarget) }()

	<-entered
	second := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateSuppressed, second.State)
	assert.Empty(t, second.Location)

	close(release)
	assert.Equal(t, StateGranted, (<-first).State)

	again := g.Navigate(context.Background(), videoTarget)
	assert.Equal(t, StateGranted, again.State, "a fresh click starts over")
}

func TestPaymentURL(t *testing.T) {
	assert.Equal(t, "section-payment.html?section=7", PaymentURL("section-payment.html", "7", ""))
	assert.Equal(t,
		"section-payment.html?section=7&next=https%3A%2F%2Flms.example%2Fquiz.html%3Fid%3D3%26a%3Db",
		PaymentURL("section-payment.html", "7", "https://lms.example/quiz.html?id=3&a=b"),
	)
}

type sessionFunc func(context.Context) (string, error)

func (f sessionFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

func TestNavigateSubject(t *testing.T) {
	g := newGate(t, accessServer(t, map[string]bool{"subject:3": true}), StaticSession(token), time.Second)
	target := Target{ContentType: types.ContentTypeSubject, SubjectID: "3", Destination: "subject.html?id=3"}

	d := g.Navigate(context.Background(), target)
	assert.Equal(t, StateGranted, d.State)
	assert.Equal(t, "subject.html?id=3", d.Location)

	target.SubjectID = "4"
	target.Destination = "subject.html?id=4"
	d = g.Navigate(context.Background(), target)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, "subject-payment.html?subject=4&next=subject.html%3Fid%3D4", d.Location)
}

func TestNavigateSubjectWithoutID(t *testing.T) {
	g := newGate(t, accessServer(t, map[string]bool{}), StaticSession(token), time.Second)

	d := g.Navigate(context.Background(), Target{ContentType: types.ContentTypeSubject, ContentID: "3"})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, ReasonInvalid, d.Reason)
}

func TestSubjectPaymentURL(t *testing.T) {
	assert.Equal(t, "subject-payment.html?subject=3", SubjectPaymentURL("subject-payment.html", "3", ""))
	assert.Equal(t, "subject-payment.html?subject=3&next=a.html%3Fx%3D1", SubjectPaymentURL("subject-payment.html", "3", "a.html?x=1"))

	g := New(config.GateConfig{BackendURL: "http://localhost"}, StaticSession(token), logger.Discard())
	assert.Equal(t, "subject-payment.html?subject=9", g.SubjectPaymentURL("9", ""))
	assert.Equal(t, "section-payment.html?section=9", g.PaymentURL("9", ""))
}
