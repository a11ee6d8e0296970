package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Default values for synthesis parameters.
const (
	DefaultSpeed             = 1.0
	DefaultNFESteps          = 32
	DefaultCrossFadeDuration = 0.15
	DefaultSeed              = -1
)

// Validation limits for synthesis parameters.
const (
	MinSpeed             = 0.25
	MaxSpeed             = 4.0
	MinNFESteps          = 1
	MaxNFESteps          = 128
	MaxCrossFadeDuration = 5.0

	// MaxSeed is the largest seed the model accepts (2^31 - 1).
	MaxSeed = 1<<31 - 1
)

// Static validation errors.
var (
	// ErrSpeedRange indicates that the speed multiplier is out of the valid range.
	ErrSpeedRange = errors.New("speed must be between 0.25 and 4.0")
	// ErrNFEStepsRange indicates that the NFE step count is out of the valid range.
	ErrNFEStepsRange = errors.New("nfe_step must be between 1 and 128")
	// ErrCrossFadeRange indicates that the cross-fade duration is out of the valid range.
	ErrCrossFadeRange = errors.New("cross_fade_duration must be between 0.0 and 5.0 seconds")
)

// SynthesisOptions holds the per-request generation parameters forwarded to
// the model. The zero value is not valid; use NewSynthesisOptions.
type SynthesisOptions struct {
	// Speed is the playback speed multiplier applied during generation.
	Speed float64

	// NFESteps is the number of function evaluations for the flow matching
	// solver. Higher values trade latency for quality.
	NFESteps int

	// CrossFadeDuration is the overlap, in seconds, used when the model
	// stitches generated segments together.
	CrossFadeDuration float64

	// Seed controls sampling determinism. Values outside [0, MaxSeed] are
	// replaced by a random seed at resolution time.
	Seed int64

	// RemoveSilence asks the model to trim long silences from the output.
	RemoveSilence bool
}

// NewSynthesisOptions returns options populated with the model defaults.
func NewSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{
		Speed:             DefaultSpeed,
		NFESteps:          DefaultNFESteps,
		CrossFadeDuration: DefaultCrossFadeDuration,
		Seed:              DefaultSeed,
		RemoveSilence:     false,
	}
}

// Validate ensures that the options contain values the model accepts.
func (o SynthesisOptions) Validate() error {
	if o.Speed < MinSpeed || o.Speed > MaxSpeed {
		return fmt.Errorf("%w: got %g", ErrSpeedRange, o.Speed)
	}

	if o.NFESteps < MinNFESteps || o.NFESteps > MaxNFESteps {
		return fmt.Errorf("%w: got %d", ErrNFEStepsRange, o.NFESteps)
	}

	if o.CrossFadeDuration < 0.0 || o.CrossFadeDuration > MaxCrossFadeDuration {
		return fmt.Errorf("%w: got %g", ErrCrossFadeRange, o.CrossFadeDuration)
	}

	return nil
}

// ResolveSeed returns the seed to pass to the model. Seeds outside
// [0, MaxSeed] are replaced by a random in-range seed so every request has a
// concrete, reportable seed.
func (o SynthesisOptions) ResolveSeed() int64 {
	if o.Seed >= 0 && o.Seed <= MaxSeed {
		return o.Seed
	}

	return rand.Int64N(MaxSeed + 1)
}
