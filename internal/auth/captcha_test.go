package auth

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaManager_ChallengeRoundTrip(t *testing.T) {
	m := NewCaptchaManager(newTestSessionManager(t))

	challenge, err := m.NewChallenge()
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Token)

	// The question is "What is A + B?"; verify the token's answer matches.
	fields := strings.Fields(strings.TrimSuffix(challenge.Question, "?"))
	require.Len(t, fields, 5)
	a, err := strconv.Atoi(fields[2])
	require.NoError(t, err)
	b, err := strconv.Atoi(fields[4])
	require.NoError(t, err)

	answer, err := m.ExpectedAnswer(challenge.Token)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(a+b), answer)
}

func TestCaptchaManager_OperandsInRange(t *testing.T) {
	m := NewCaptchaManager(newTestSessionManager(t))

	for i := 0; i < 20; i++ {
		challenge, err := m.NewChallenge()
		require.NoError(t, err)

		answer, err := m.ExpectedAnswer(challenge.Token)
		require.NoError(t, err)

		sum, err := strconv.Atoi(answer)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sum, 2)
		assert.LessOrEqual(t, sum, 20)
	}
}

func TestCaptchaManager_InvalidTokenRejected(t *testing.T) {
	m := NewCaptchaManager(newTestSessionManager(t))

	_, err := m.ExpectedAnswer("not-a-valid-token")
	assert.Error(t, err)
}

func TestCaptchaManager_ForeignTokenRejected(t *testing.T) {
	m1 := NewCaptchaManager(newTestSessionManager(t))
	m2 := NewCaptchaManager(NewSessionManager([]byte("another-hash-key-also-32-bytes!!"), nil, CookieConfig{MaxAge: 3600}))

	challenge, err := m1.NewChallenge()
	require.NoError(t, err)

	_, err = m2.ExpectedAnswer(challenge.Token)
	assert.Error(t, err)
}
