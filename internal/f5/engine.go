// Package f5 implements the core.SpeechSynthesizer interface by calling the
// F5-TTS inference command line tool.
//
// All model concerns (weights, vocoding, alignment) live inside the external
// tool; this package only builds argument lists, supervises the process, and
// reads back the generated WAV.
package f5

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/voice-clone-service/internal/audio"
	"github.com/book-expert/voice-clone-service/internal/core"
)

const (
	outputFileName = "generated.wav"

	tempDirPrefix  = "f5-infer-"
	dirPermissions = 0o750
)

// Static errors.
var (
	// ErrBinaryPathEmpty indicates that no inference binary is configured.
	ErrBinaryPathEmpty = errors.New("inference binary path cannot be empty")
	// ErrModelNameEmpty indicates that no model name is configured.
	ErrModelNameEmpty = errors.New("model name cannot be empty")
	// ErrTextEmpty indicates that no generation text was provided.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrNoOutput indicates that the inference tool exited cleanly without
	// producing an output file.
	ErrNoOutput = errors.New("inference produced no output file")
)

// Config holds the engine configuration.
type Config struct {
	// BinaryPath is the F5-TTS inference CLI, resolved through PATH when relative.
	BinaryPath string

	// ModelName selects the pre-trained model the CLI loads.
	ModelName string

	// WorkDir is the root for per-inference scratch directories. Empty means
	// the system temp directory.
	WorkDir string

	// Timeout bounds a single inference run.
	Timeout time.Duration

	// MaxConcurrent limits simultaneous inference processes. GPU inference
	// is effectively serial, so the default is one.
	MaxConcurrent int
}

// Engine runs the F5-TTS CLI for voice-cloning synthesis.
type Engine struct {
	config Config
	log    *logger.Logger
	slots  chan struct{}
	ready  atomic.Bool
}

// New creates an engine from the given configuration.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	if cfg.BinaryPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	if cfg.ModelName == "" {
		return nil, ErrModelNameEmpty
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	return &Engine{
		config: cfg,
		log:    log,
		slots:  make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Probe verifies that the inference binary is runnable. The engine reports
// ready, and the health endpoint reports model_loaded, only after a
// successful probe.
func (e *Engine) Probe() error {
	resolved, err := exec.LookPath(e.config.BinaryPath)
	if err != nil {
		return fmt.Errorf("inference binary %q not found: %w", e.config.BinaryPath, err)
	}

	e.log.Info("Inference binary resolved: %s (model %s)", resolved, e.config.ModelName)
	e.ready.Store(true)

	return nil
}

// Ready reports whether the startup probe has succeeded.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// Synthesize clones the reference voice onto the given text and returns the
// generated WAV bytes. The caller provides options with an already resolved
// seed; the engine forwards them verbatim.
func (e *Engine) Synthesize(
	ctx context.Context,
	ref core.ReferencePair,
	text string,
	opts core.SynthesisOptions,
) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextEmpty
	}

	release, err := e.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	refText, err := readReferenceText(ref.TextPath)
	if err != nil {
		return nil, err
	}

	workDir, cleanup, err := e.makeWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	args := e.buildArgs(ref.AudioPath, refText, text, workDir, opts)

	// #nosec G204 -- the binary path comes from service configuration and the
	// reference paths from the validated voice catalog.
	cmd := exec.CommandContext(runCtx, e.config.BinaryPath, args...)

	started := time.Now()

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return nil, fmt.Errorf(
			"inference failed for voice %q: %w - output: %s",
			ref.VoiceID, runErr, string(output))
	}

	audioData, readErr := os.ReadFile(filepath.Join(workDir, outputFileName))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, fmt.Errorf("%w - output: %s", ErrNoOutput, string(output))
		}

		return nil, fmt.Errorf("failed to read generated audio: %w", readErr)
	}

	validateErr := audio.Validate(audioData)
	if validateErr != nil {
		return nil, fmt.Errorf("generated audio is not a valid wav stream: %w", validateErr)
	}

	e.log.Info(
		"Synthesized %d bytes for voice %s/%s in %s (seed %d)",
		len(audioData), ref.VoiceID, ref.Variation,
		time.Since(started).Round(time.Millisecond), opts.Seed)

	return audioData, nil
}

// acquireSlot blocks until an inference slot is free or the context ends.
func (e *Engine) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case e.slots <- struct{}{}:
		return func() { <-e.slots }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for inference slot: %w", ctx.Err())
	}
}

func (e *Engine) makeWorkDir() (string, func(), error) {
	root := e.config.WorkDir
	if root == "" {
		root = os.TempDir()
	}

	workDir := filepath.Join(root, tempDirPrefix+uuid.NewString())

	err := os.MkdirAll(workDir, dirPermissions)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create inference work directory: %w", err)
	}

	cleanup := func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			e.log.Warn("Failed to remove work directory %q: %v", workDir, removeErr)
		}
	}

	return workDir, cleanup, nil
}

// buildArgs assembles the CLI argument list for one inference run.
func (e *Engine) buildArgs(
	refAudioPath, refText, genText, workDir string,
	opts core.SynthesisOptions,
) []string {
	args := []string{
		"--model", e.config.ModelName,
		"--ref_audio", refAudioPath,
		"--ref_text", refText,
		"--gen_text", genText,
		"--output_dir", workDir,
		"--output_file", outputFileName,
		"--speed", strconv.FormatFloat(opts.Speed, 'f', -1, 64),
		"--nfe_step", strconv.Itoa(opts.NFESteps),
		"--cross_fade_duration", strconv.FormatFloat(opts.CrossFadeDuration, 'f', -1, 64),
	}

	if opts.Seed >= 0 {
		args = append(args, "--seed", strconv.FormatInt(opts.Seed, 10))
	}

	if opts.RemoveSilence {
		args = append(args, "--remove_silence")
	}

	return args
}

func readReferenceText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reference transcript %q: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}
