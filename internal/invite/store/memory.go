package store

import (
	"context"
	"sync"
	"time"

	"certforge/internal/invite/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
)

// InMemoryStore keeps invites under one mutex so the conditioned acceptance
// update behaves the same as the row-conditioned SQL statement.
type InMemoryStore struct {
	mu      sync.Mutex
	invites map[id.InviteID]models.Invite
	byToken map[string]id.InviteID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		invites: make(map[id.InviteID]models.Invite),
		byToken: make(map[string]id.InviteID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, invite *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byToken[invite.Token]; exists {
		return sentinel.ErrConflict
	}
	s.invites[invite.ID] = *invite
	s.byToken[invite.Token] = invite.ID
	return nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inviteID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := s.invites[inviteID]
	return &copied, nil
}

func (s *InMemoryStore) MarkExpired(_ context.Context, inviteID id.InviteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[inviteID]
	if !ok {
		return sentinel.ErrNotFound
	}
	invite.ApplyExpiry()
	s.invites[inviteID] = invite
	return nil
}

func (s *InMemoryStore) Accept(_ context.Context, token string, userID id.UserID, now time.Time) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inviteID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	invite := s.invites[inviteID]
	switch {
	case invite.Status == models.InviteStatusAccepted:
		return nil, sentinel.ErrAlreadyUsed
	case invite.Status == models.InviteStatusExpired || invite.IsExpired(now):
		return nil, sentinel.ErrExpired
	}

	invite.ApplyAccept(userID, now)
	s.invites[inviteID] = invite
	copied := invite
	return &copied, nil
}
