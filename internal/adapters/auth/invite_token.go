package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"choretracker/internal/domain"
)

// InviteTokenSize is the number of random bytes in an invitation token (256 bits).
const InviteTokenSize = 32

type inviteTokens struct{}

// NewInviteTokens returns the invitation token generator. Tokens are base64url
// encoded crypto/rand bytes; only their SHA-256 fingerprint is persisted.
func NewInviteTokens() domain.InvitationTokens {
	return inviteTokens{}
}

func (inviteTokens) Generate() (string, string, error) {
	buf := make([]byte, InviteTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, fingerprint(token), nil
}

func (inviteTokens) Fingerprint(token string) string {
	return fingerprint(token)
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
