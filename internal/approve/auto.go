package approve

import (
	"context"

	"github.com/kvit-s/applydiff/internal/patch"
)

// Auto applies a fixed policy decision without showing anything. Used when
// the caller opts into auto-approval and by tests.
type Auto struct {
	Decision bool
}

// NewAuto returns an Auto approver with the given fixed decision.
func NewAuto(decision bool) *Auto {
	return &Auto{Decision: decision}
}

// RequestApproval returns the fixed decision. A cancelled context still means
// rejection: silence is never approval.
func (a *Auto) RequestApproval(ctx context.Context, preview patch.Preview) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a.Decision, nil
}
