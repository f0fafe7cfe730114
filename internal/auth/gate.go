package auth

import (
	"crypto/subtle"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
)

// Grant is proof that a credential was checked. The zero value authorizes nothing.
type Grant struct{ ok bool }

func (g Grant) Allowed() bool { return g.ok }

// Check returns ErrAuthDenied unless g came from a successful Authorize.
func (g Grant) Check(op string) error {
	if !g.ok {
		return errs.E(op, errs.ErrAuthDenied, nil)
	}
	return nil
}

// Gate compares credentials against the admin secret it was built with.
type Gate struct{ secret []byte }

// NewGate takes the configured secret. An empty secret denies everyone.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

func (g *Gate) Authorize(credential string) (Grant, error) {
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(credential), g.secret) != 1 {
		return Grant{}, errs.E("auth.Authorize", errs.ErrAuthDenied, nil)
	}
	return Grant{ok: true}, nil
}
