package sequencer

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure kinds. None of them stop playback; they are logged where they
// happen and the tick carries on.
var (
	ErrValidation          = errors.New("invalid beat")
	ErrResourceUnavailable = errors.New("instrument voice unavailable")
	ErrTransientRead       = errors.New("beat read failed")

	ErrUnknownTrack = errors.New("unknown track")
	ErrUnknownBeat  = errors.New("unknown beat")
)

// ValidationError describes a malformed beat seen at read time
type ValidationError struct {
	TrackID string
	BeatID  string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("track %s beat %s: %s", e.TrackID, e.BeatID, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
