package access

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

type contentKey struct {
	ct types.ContentType
	id int64
}

type entitlementKey struct {
	user    uuid.UUID
	section int64
}

type stubStore struct {
	mu           sync.Mutex
	sections     map[contentKey]int64
	prices       map[int64]int
	entitlements map[entitlementKey]bool
	roles        map[uuid.UUID]types.UserRole

	subjectPrices       map[int64]int
	subjectEntitlements map[entitlementKey]bool

	sectionErr     error
	entitlementErr error
	priceErr       error
	roleErr        error

	entitlementCalls int
}

func newStubStore() *stubStore {
	return &stubStore{
		sections:     map[contentKey]int64{},
		prices:       map[int64]int{},
		entitlements: map[entitlementKey]bool{},
		roles:        map[uuid.UUID]types.UserRole{},

		subjectPrices:       map[int64]int{},
		subjectEntitlements: map[entitlementKey]bool{},
	}
}

func (s *stubStore) addContent(ct types.ContentType, id, sectionID int64) {
	s.sections[contentKey{ct, id}] = sectionID
}

func (s *stubStore) grant(user uuid.UUID, sectionID int64) {
	s.entitlements[entitlementKey{user, sectionID}] = true
}

func (s *stubStore) SectionOf(_ context.Context, ct types.ContentType, id int64) (int64, error) {
	if s.sectionErr != nil {
		return 0, s.sectionErr
	}
	sectionID, ok := s.sections[contentKey{ct, id}]
	if !ok {
		return 0, ErrNotFound
	}
	return sectionID, nil
}

func (s *stubStore) HasEntitlement(_ context.Context, user uuid.UUID, sectionID int64) (bool, error) {
	s.mu.Lock()
	s.entitlementCalls++
	s.mu.Unlock()
	if s.entitlementErr != nil {
		return false, s.entitlementErr
	}
	return s.entitlements[entitlementKey{user, sectionID}], nil
}

func (s *stubStore) SectionPrice(_ context.Context, sectionID int64) (int, error) {
	if s.priceErr != nil {
		return 0, s.priceErr
	}
	price, ok := s.prices[sectionID]
	if !ok {
		return 0, ErrNotFound
	}
	return price, nil
}

func (s *stubStore) grantSubject(user uuid.UUID, subjectID int64) {
	s.subjectEntitlements[entitlementKey{user, subjectID}] = true
}

func (s *stubStore) HasSubjectEntitlement(_ context.Context, user uuid.UUID, subjectID int64) (bool, error) {
	s.mu.Lock()
	s.entitlementCalls++
	s.mu.Unlock()
	if s.entitlementErr != nil {
		return false, s.entitlementErr
	}
	return s.subjectEntitlements[entitlementKey{user, subjectID}], nil
}

func (s *stubStore) SubjectPrice(_ context.Context, subjectID int64) (int, error) {
	if s.priceErr != nil {
		return 0, s.priceErr
	}
	price, ok := s.subjectPrices[subjectID]
	if !ok {
		return 0, ErrNotFound
	}
	return price, nil
}

func (s *stubStore) RoleOf(_ context.Context, user uuid.UUID) (types.UserRole, error) {
	if s.roleErr != nil {
		return "", s.roleErr
	}
	role, ok := s.roles[user]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}
