package canvascap

import (
	"context"
	"fmt"

	"github.com/go-rod/stealth"
)

// Evader patches the browser's automation-detection surface. It is applied
// once per session, before the first navigation.
type Evader interface {
	Apply(ctx context.Context, s Session) error
}

// Stealth installs the go-rod/stealth evasion script on every document the
// session loads.
type Stealth struct{}

// Apply implements [Evader].
func (Stealth) Apply(ctx context.Context, s Session) error {
	if err := s.AddInitScript(ctx, stealth.JS); err != nil {
		return fmt.Errorf("canvascap: installing stealth script: %w", err)
	}
	return nil
}

// NoEvasion leaves the browser untouched.
type NoEvasion struct{}

// Apply implements [Evader].
func (NoEvasion) Apply(context.Context, Session) error { return nil }
