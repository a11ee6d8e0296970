// Package core defines the core business logic and interfaces for the
// voice-clone-service.
package core

import "context"

// ReferencePair identifies the on-disk reference audio and transcript that
// condition a synthesis call. Paths are absolute and already resolved by the
// voice catalog.
type ReferencePair struct {
	VoiceID   string
	Variation string
	AudioPath string
	TextPath  string
}

// SpeechSynthesizer defines the interface for a voice-cloning synthesis engine.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, ref ReferencePair, text string, opts SynthesisOptions) ([]byte, error)
	Ready() bool
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
