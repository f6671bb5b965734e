package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("s3cret", 4242, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), claims.FID)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := GenerateToken("s3cret", 1, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("s3cret", 1, -time.Minute)
	require.NoError(t, err)
	noFID, err := GenerateToken("s3cret", 0, time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		secret, token string
	}{
		"wrong secret": {"other", good},
		"expired":      {"s3cret", expired},
		"missing fid":  {"s3cret", noFID},
		"garbage":      {"s3cret", "not-a-jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.token)
			assert.Error(t, err)
		})
	}
}
