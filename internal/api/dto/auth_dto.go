package dto

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/policy"
)

// LoginRequest payload for staff password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MagicLinkRequest asks for a sign-in link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLinkVerifyRequest exchanges a link token for a session.
type MagicLinkVerifyRequest struct {
	Token string `json:"token"`
}

// SessionResponse is returned by every sign-in endpoint.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}

// MeResponse describes the resolved caller.
type MeResponse struct {
	User         UserSummary         `json:"user"`
	Customer     *CustomerResponse   `json:"customer,omitempty"`
	Capabilities []policy.Capability `json:"capabilities"`
}
