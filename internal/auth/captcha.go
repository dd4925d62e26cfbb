package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CaptchaChallenge is a simple arithmetic challenge shown at registration.
// The expected answer travels back with the form, signed inside the captcha
// token, so no server-side state is needed.
type CaptchaChallenge struct {
	Question string `json:"question"`
	Token    string `json:"token"`
}

type captchaPayload struct {
	Answer string `json:"answer"`
}

// CaptchaManager issues and verifies arithmetic challenges. Tokens reuse the
// session cookie codec so answers cannot be forged client-side.
type CaptchaManager struct {
	sessions *SessionManager
}

// NewCaptchaManager creates a CaptchaManager sharing the session codec
func NewCaptchaManager(sessions *SessionManager) *CaptchaManager {
	return &CaptchaManager{sessions: sessions}
}

// NewChallenge generates a fresh addition challenge
func (m *CaptchaManager) NewChallenge() (*CaptchaChallenge, error) {
	a, err := randomInt(10)
	if err != nil {
		return nil, err
	}
	b, err := randomInt(10)
	if err != nil {
		return nil, err
	}

	token, err := m.sessions.codec.Encode("captcha", captchaPayload{
		Answer: fmt.Sprintf("%d", a+b),
	})
	if err != nil {
		return nil, err
	}

	return &CaptchaChallenge{
		Question: fmt.Sprintf("What is %d + %d?", a, b),
		Token:    token,
	}, nil
}

// ExpectedAnswer decodes a challenge token back into its answer. An invalid
// or expired token returns an error.
func (m *CaptchaManager) ExpectedAnswer(token string) (string, error) {
	var payload captchaPayload
	if err := m.sessions.codec.Decode("captcha", token, &payload); err != nil {
		return "", err
	}
	return payload.Answer, nil
}

func randomInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64() + 1, nil
}
