package codes

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verificationCodePattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)

func TestGenerate(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)

	t.Run("certificate number embeds issuance millis", func(t *testing.T) {
		pair, err := Generate(now)
		require.NoError(t, err)

		parts := strings.Split(pair.CertificateNumber, "-")
		require.Len(t, parts, 3)
		assert.Equal(t, "CERT", parts[0])

		millis, err := strconv.ParseInt(parts[1], 10, 64)
		require.NoError(t, err)
		assert.Equal(t, now.UnixMilli(), millis)

		assert.Len(t, parts[2], 6)
	})

	t.Run("verification code is 12 uppercase alphanumerics", func(t *testing.T) {
		pair, err := Generate(now)
		require.NoError(t, err)
		assert.Regexp(t, verificationCodePattern, pair.VerificationCode)
	})

	t.Run("codes differ across calls", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			pair, err := Generate(now)
			require.NoError(t, err)
			assert.False(t, seen[pair.VerificationCode], "verification code repeated")
			seen[pair.VerificationCode] = true
		}
	})
}
