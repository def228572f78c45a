package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateLifecycle(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	active := func() *Certificate {
		return &Certificate{Status: CertificateStatusActive, IssuedDate: now}
	}

	t.Run("active certificate with no expiry is valid", func(t *testing.T) {
		c := active()
		assert.True(t, c.IsValid(now))
		assert.False(t, c.IsExpired(now))
		assert.Equal(t, CertificateStatusActive, c.EffectiveStatus(now))
	})

	t.Run("past expiry invalidates without a stored transition", func(t *testing.T) {
		c := active()
		expiry := now.Add(-24 * time.Hour)
		c.ExpiryDate = &expiry

		assert.True(t, c.IsExpired(now))
		assert.False(t, c.IsValid(now))
		assert.Equal(t, CertificateStatusActive, c.Status)
		assert.Equal(t, CertificateStatusExpired, c.EffectiveStatus(now))
	})

	t.Run("revoke stamps revoked_at", func(t *testing.T) {
		c := active()
		require.NoError(t, c.CanRevoke())
		c.ApplyRevoke(now)

		assert.Equal(t, CertificateStatusRevoked, c.Status)
		require.NotNil(t, c.RevokedAt)
		assert.False(t, c.IsValid(now))
	})

	t.Run("repeated revoke keeps the original revoked_at", func(t *testing.T) {
		c := active()
		c.ApplyRevoke(now)
		first := *c.RevokedAt

		require.NoError(t, c.CanRevoke())
		c.ApplyRevoke(now.Add(time.Hour))

		assert.Equal(t, CertificateStatusRevoked, c.Status)
		assert.Equal(t, first, *c.RevokedAt)
	})

	t.Run("reissue restores active and clears revoked_at", func(t *testing.T) {
		c := active()
		c.ApplyRevoke(now)
		require.NoError(t, c.CanReissue())
		c.ApplyReissue()

		assert.Equal(t, CertificateStatusActive, c.Status)
		assert.Nil(t, c.RevokedAt)
	})

	t.Run("reissue requires revoked state", func(t *testing.T) {
		assert.Error(t, active().CanReissue())
	})
}
