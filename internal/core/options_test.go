// Package core_test tests the synthesis option handling.
package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-clone-service/internal/core"
)

func TestNewSynthesisOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts := core.NewSynthesisOptions()

	assert.InEpsilon(t, core.DefaultSpeed, opts.Speed, 0.001)
	assert.Equal(t, core.DefaultNFESteps, opts.NFESteps)
	assert.InEpsilon(t, core.DefaultCrossFadeDuration, opts.CrossFadeDuration, 0.001)
	assert.Equal(t, int64(core.DefaultSeed), opts.Seed)
	assert.False(t, opts.RemoveSilence)

	require.NoError(t, opts.Validate())
}

func TestSynthesisOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*core.SynthesisOptions)
		wantErr error
	}{
		{
			name:    "speed too slow",
			mutate:  func(o *core.SynthesisOptions) { o.Speed = 0.1 },
			wantErr: core.ErrSpeedRange,
		},
		{
			name:    "speed too fast",
			mutate:  func(o *core.SynthesisOptions) { o.Speed = 5.0 },
			wantErr: core.ErrSpeedRange,
		},
		{
			name:    "nfe steps zero",
			mutate:  func(o *core.SynthesisOptions) { o.NFESteps = 0 },
			wantErr: core.ErrNFEStepsRange,
		},
		{
			name:    "nfe steps too high",
			mutate:  func(o *core.SynthesisOptions) { o.NFESteps = 256 },
			wantErr: core.ErrNFEStepsRange,
		},
		{
			name:    "negative cross fade",
			mutate:  func(o *core.SynthesisOptions) { o.CrossFadeDuration = -0.1 },
			wantErr: core.ErrCrossFadeRange,
		},
		{
			name:    "cross fade too long",
			mutate:  func(o *core.SynthesisOptions) { o.CrossFadeDuration = 10.0 },
			wantErr: core.ErrCrossFadeRange,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			opts := core.NewSynthesisOptions()
			testCase.mutate(&opts)

			err := opts.Validate()
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestSynthesisOptions_ResolveSeed_InRangePassesThrough(t *testing.T) {
	t.Parallel()

	opts := core.NewSynthesisOptions()
	opts.Seed = 12345

	assert.Equal(t, int64(12345), opts.ResolveSeed())

	opts.Seed = 0
	assert.Equal(t, int64(0), opts.ResolveSeed())

	opts.Seed = core.MaxSeed
	assert.Equal(t, int64(core.MaxSeed), opts.ResolveSeed())
}

func TestSynthesisOptions_ResolveSeed_OutOfRangeRerolls(t *testing.T) {
	t.Parallel()

	opts := core.NewSynthesisOptions()

	for _, seed := range []int64{-1, -100, core.MaxSeed + 1} {
		opts.Seed = seed
		resolved := opts.ResolveSeed()

		assert.GreaterOrEqual(t, resolved, int64(0))
		assert.LessOrEqual(t, resolved, int64(core.MaxSeed))
	}
}
