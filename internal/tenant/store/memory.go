package store

import (
	"context"
	"strings"
	"sync"

	"certforge/internal/tenant/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	orgs map[id.OrgID]models.Organization
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orgs: make(map[id.OrgID]models.Organization)}
}

func (s *InMemoryStore) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.orgs {
		if strings.EqualFold(existing.Name, org.Name) {
			return sentinel.ErrConflict
		}
	}
	s.orgs[org.ID] = *org
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, orgID id.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := org
	return &copied, nil
}
