//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certforge/internal/invite/models"
	"certforge/internal/invite/store"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/testutil/containers"
)

type PostgresInviteSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresInviteSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresInviteSuite))
}

func (s *PostgresInviteSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresInviteSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "invites")
	s.Require().NoError(err)
}

func (s *PostgresInviteSuite) newInvite(ttl time.Duration) *models.Invite {
	invite, err := models.NewInvite(id.InviteID(uuid.New()), id.OrgID(uuid.New()),
		"dana.smith@example.com", uuid.NewString(), nil, ttl, time.Now().UTC())
	s.Require().NoError(err)
	return invite
}

// TestConcurrentAcceptSameToken verifies the row-conditioned update admits
// exactly one acceptance.
func (s *PostgresInviteSuite) TestConcurrentAcceptSameToken() {
	ctx := context.Background()
	invite := s.newInvite(time.Hour)
	s.Require().NoError(s.store.Create(ctx, invite))
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, usedCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Accept(ctx, invite.Token, id.UserID(uuid.New()), time.Now().UTC())
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				usedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one accept should succeed")
	s.Equal(int32(goroutines-1), usedCount.Load(), "all others should see already used")
}

func (s *PostgresInviteSuite) TestAcceptLapsedInvite() {
	ctx := context.Background()
	invite := s.newInvite(time.Minute)
	s.Require().NoError(s.store.Create(ctx, invite))

	// Stored status still says pending; the timestamp decides.
	_, err := s.store.Accept(ctx, invite.Token, id.UserID(uuid.New()), invite.ExpiresAt.Add(time.Second))
	s.ErrorIs(err, sentinel.ErrExpired)

	s.Require().NoError(s.store.MarkExpired(ctx, invite.ID))
	stored, err := s.store.FindByToken(ctx, invite.Token)
	s.Require().NoError(err)
	s.Equal(models.InviteStatusExpired, stored.Status)
}

func (s *PostgresInviteSuite) TestTokenUniqueness() {
	ctx := context.Background()
	first := s.newInvite(time.Hour)
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.newInvite(time.Hour)
	second.Token = first.Token
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrConflict)
}

func (s *PostgresInviteSuite) TestRoundTripFields() {
	ctx := context.Background()
	programID := id.ProgramID(uuid.New())
	invite, err := models.NewInvite(id.InviteID(uuid.New()), id.OrgID(uuid.New()),
		"Dana.Smith@Example.com", uuid.NewString(), &programID, time.Hour, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, invite))

	stored, err := s.store.FindByToken(ctx, invite.Token)
	s.Require().NoError(err)
	s.Equal("dana.smith@example.com", stored.Email)
	s.Require().NotNil(stored.ProgramID)
	s.Equal(programID, *stored.ProgramID)
	s.Nil(stored.AcceptedBy)

	userID := id.UserID(uuid.New())
	accepted, err := s.store.Accept(ctx, invite.Token, userID, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(models.InviteStatusAccepted, accepted.Status)
	s.Require().NotNil(accepted.AcceptedBy)
	s.Equal(userID, *accepted.AcceptedBy)
	s.NotNil(accepted.AcceptedAt)
}
