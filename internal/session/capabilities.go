// Package session owns the per-session state the engine consults before doing
// anything: the capability set granted to the actor and the Active/LoggingOut
// lifecycle that gates fetch issuance.
package session

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a named permission gating whether a fetch may be attempted.
type Capability string

const (
	CapAppointmentsRead   Capability = "appointments:read"
	CapExaminationsRead   Capability = "examinations:read"
	CapPlansRead          Capability = "plans:read"
	CapBillingRead        Capability = "billing:read"
	CapStaffRead          Capability = "staff:read"
	CapAppointmentsNotify Capability = "appointments:notify"
	CapBillingWrite       Capability = "billing:write"
)

// Claims is the JWT payload issued by the clinic backend at login.
type Claims struct {
	ActorID      string   `json:"sub_actor"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// Capabilities is the granted-permission set, evaluated once per session.
// Lookup is pure; nothing here talks to the network.
type Capabilities struct {
	granted map[Capability]struct{}
}

// NewCapabilities builds a capability set from explicit grants.
func NewCapabilities(caps ...Capability) *Capabilities {
	granted := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		granted[c] = struct{}{}
	}
	return &Capabilities{granted: granted}
}

// CapabilitiesFromToken parses an HMAC-signed session JWT and extracts the
// granted capability set plus the actor id the backend scopes lists by.
func CapabilitiesFromToken(tokenString, secret string) (*Capabilities, string, error) {
	if secret == "" {
		return nil, "", fmt.Errorf("session: jwt secret is required")
	}
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("session: parse token: %w", err)
	}
	if !token.Valid {
		return nil, "", fmt.Errorf("session: invalid token")
	}

	granted := make(map[Capability]struct{}, len(claims.Capabilities))
	for _, c := range claims.Capabilities {
		c = strings.TrimSpace(strings.ToLower(c))
		if c != "" {
			granted[Capability(c)] = struct{}{}
		}
	}
	actorID := claims.ActorID
	if actorID == "" {
		actorID = claims.Subject
	}
	return &Capabilities{granted: granted}, actorID, nil
}

// Allowed reports whether the capability was granted. A nil set denies
// everything, so a misconfigured session degrades to empty fetch plans
// instead of unauthorized noise.
func (c *Capabilities) Allowed(cap Capability) bool {
	if c == nil {
		return false
	}
	_, ok := c.granted[cap]
	return ok
}
