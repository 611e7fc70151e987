package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

const (
	paidSection = int64(7)
	freeSection = int64(8)
	videoID     = int64(101)
	quizID      = int64(201)
	fileID      = int64(301)
)

var errStoreDown = errors.New("connection refused")

func fixture() (*stubStore, uuid.UUID, uuid.UUID) {
	store := newStubStore()
	store.prices[paidSection] = 30
	store.prices[freeSection] = 0
	store.addContent(types.ContentTypeVideo, videoID, paidSection)
	store.addContent(types.ContentTypeQuiz, quizID, paidSection)
	store.addContent(types.ContentTypeFile, fileID, paidSection)
	store.addContent(types.ContentTypeVideo, videoID+1, freeSection)

	entitled := uuid.New()
	stranger := uuid.New()
	store.grant(entitled, paidSection)
	store.roles[entitled] = types.UserRoleStudent
	store.roles[stranger] = types.UserRoleStudent
	return store, entitled, stranger
}

func strict(store Store) *Checker {
	return NewChecker(store, config.AccessPolicyStrict, logger.Discard())
}

func unified(store Store) *Checker {
	return NewChecker(store, config.AccessPolicyUnified, logger.Discard())
}

func TestCheckEntitledUserGetsVideo(t *testing.T) {
	store, entitled, stranger := fixture()
	ctx := context.Background()

	for _, c := range []*Checker{strict(store), unified(store)} {
		assert.True(t, c.Check(ctx, entitled, types.ContentTypeVideo, "101"), c.Policy())
		assert.False(t, c.Check(ctx, stranger, types.ContentTypeVideo, "101"), c.Policy())
	}
}

func TestCheckIsTransitiveThroughSection(t *testing.T) {
	store, entitled, stranger := fixture()
	ctx := context.Background()

	items := []struct {
		ct types.ContentType
		id string
	}{
		{types.ContentTypeVideo, "101"},
		{types.ContentTypeQuiz, "201"},
		{types.ContentTypeFile, "301"},
	}

	for _, c := range []*Checker{strict(store), unified(store)} {
		for _, user := range []uuid.UUID{entitled, stranger} {
			want := c.Check(ctx, user, types.ContentTypeSection, "7")
			for _, item := range items {
				assert.Equal(t, want, c.Check(ctx, user, item.ct, item.id), "%s %s %s", c.Policy(), item.ct, item.id)
			}
		}
	}
}

func TestCheckFailsClosedOnStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("entitlement lookup", func(t *testing.T) {
		store, entitled, _ := fixture()
		store.entitlementErr = errStoreDown
		for _, c := range []*Checker{strict(store), unified(store)} {
			assert.False(t, c.Check(ctx, entitled, types.ContentTypeSection, "7"))
			assert.False(t, c.Check(ctx, entitled, types.ContentTypeVideo, "101"))
		}
	})

	t.Run("section lookup", func(t *testing.T) {
		store, entitled, _ := fixture()
		store.sectionErr = errStoreDown
		for _, c := range []*Checker{strict(store), unified(store)} {
			assert.False(t, c.Check(ctx, entitled, types.ContentTypeQuiz, "201"))
		}
	})

	t.Run("short-circuit lookups do not grant", func(t *testing.T) {
		store, _, stranger := fixture()
		store.roleErr = errStoreDown
		store.priceErr = errStoreDown
		assert.False(t, unified(store).Check(ctx, stranger, types.ContentTypeSection, "7"))
		assert.Equal(t, 1, store.entitlementCalls)
	})
}

func TestCheckMissingContentDenies(t *testing.T) {
	store, entitled, _ := fixture()
	ctx := context.Background()

	c := unified(store)
	assert.False(t, c.Check(ctx, entitled, types.ContentTypeVideo, "999"))
	assert.False(t, c.Check(ctx, entitled, types.ContentTypeFile, "abc"))
	assert.False(t, c.Check(ctx, entitled, types.ContentTypeSection, "-7"))
	assert.False(t, c.Check(ctx, entitled, types.ContentTypeSection, ""))
	assert.Zero(t, store.entitlementCalls)
}

func TestStrictPolicyIgnoresFreeAndAdmin(t *testing.T) {
	store, _, stranger := fixture()
	admin := uuid.New()
	store.roles[admin] = types.UserRoleAdmin
	ctx := context.Background()

	c := strict(store)
	assert.False(t, c.Check(ctx, stranger, types.ContentTypeSection, "8"))
	assert.False(t, c.Check(ctx, admin, types.ContentTypeVideo, "101"))
}

func TestUnifiedPolicyShortCircuits(t *testing.T) {
	store, _, stranger := fixture()
	admin := uuid.New()
	store.roles[admin] = types.UserRoleAdmin
	ctx := context.Background()

	c := unified(store)
	assert.Equal(t, Status{HasAccess: true, Reason: ReasonFree}, c.SectionStatus(ctx, stranger, freeSection))
	assert.True(t, c.Check(ctx, stranger, types.ContentTypeVideo, "102"))
	assert.Equal(t, Status{HasAccess: true, Reason: ReasonAdmin}, c.SectionStatus(ctx, admin, paidSection))
	assert.Equal(t, Status{HasAccess: false, Reason: ReasonDenied}, c.SectionStatus(ctx, stranger, paidSection))
}

func TestSectionStatusReportsError(t *testing.T) {
	store, entitled, _ := fixture()
	store.entitlementErr = errStoreDown

	status := strict(store).SectionStatus(context.Background(), entitled, paidSection)
	assert.Equal(t, Status{HasAccess: false, Reason: ReasonError}, status)
}

func TestUnknownPolicyFallsBackToStrict(t *testing.T) {
	c := NewChecker(newStubStore(), "lenient", logger.Discard())
	assert.Equal(t, config.AccessPolicyStrict, c.Policy())
}

func TestCheckConcurrentCalls(t *testing.T) {
	store, entitled, stranger := fixture()
	c := unified(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.True(t, c.Check(ctx, entitled, types.ContentTypeVideo, "101"))
		}()
		go func() {
			defer wg.Done()
			assert.False(t, c.Check(ctx, stranger, types.ContentTypeVideo, "101"))
		}()
	}
	wg.Wait()
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "4.2", "x", "9223372036854775808"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidContentID, bad)
	}
}

func TestSubjectStatus(t *testing.T) {
	store, entitled, stranger := fixture()
	admin := uuid.New()
	store.roles[admin] = types.UserRoleAdmin
	store.subjectPrices[3] = 120
	store.subjectPrices[4] = 0
	store.grantSubject(entitled, 3)
	ctx := context.Background()

	c := unified(store)
	assert.Equal(t, Status{HasAccess: true, Reason: ReasonEntitled}, c.SubjectStatus(ctx, entitled, 3))
	assert.Equal(t, Status{HasAccess: false, Reason: ReasonDenied}, c.SubjectStatus(ctx, stranger, 3))
	assert.Equal(t, Status{HasAccess: true, Reason: ReasonFree}, c.SubjectStatus(ctx, stranger, 4))
	assert.Equal(t, Status{HasAccess: true, Reason: ReasonAdmin}, c.SubjectStatus(ctx, admin, 3))

	assert.True(t, c.Check(ctx, entitled, types.ContentTypeSubject, "3"))
	assert.False(t, c.Check(ctx, stranger, types.ContentTypeSubject, "3"))
	assert.False(t, c.Check(ctx, stranger, types.ContentTypeSubject, "abc"))

	s := strict(store)
	assert.False(t, s.Check(ctx, stranger, types.ContentTypeSubject, "4"))
	assert.False(t, s.Check(ctx, admin, types.ContentTypeSubject, "3"))
}

func TestSubjectGrantDoesNotOpenSections(t *testing.T) {
	store, _, stranger := fixture()
	store.subjectPrices[3] = 120
	store.grantSubject(stranger, 3)

	c := strict(store)
	assert.False(t, c.Check(context.Background(), stranger, types.ContentTypeSection, "7"))
	assert.False(t, c.Check(context.Background(), stranger, types.ContentTypeVideo, "101"))
}

func TestSubjectStatusReportsError(t *testing.T) {
	store, entitled, _ := fixture()
	store.subjectPrices[3] = 120
	store.entitlementErr = errStoreDown

	status := unified(store).SubjectStatus(context.Background(), entitled, 3)
	assert.Equal(t, Status{HasAccess: false, Reason: ReasonError}, status)
}
