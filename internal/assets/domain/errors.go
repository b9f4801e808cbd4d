package assets

import "errors"

// ErrEmptyProfileID indicates a profile without an id.
var ErrEmptyProfileID = errors.New("asset profile: empty id")

// ProfileError reports an invariant violation in a profile.
type ProfileError struct {
	ProfileID string
	Reason    string
}

func (e *ProfileError) Error() string {
	return "asset profile " + e.ProfileID + ": " + e.Reason
}
