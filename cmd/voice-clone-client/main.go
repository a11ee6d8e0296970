// main package for the voice-clone reference client. It exercises the HTTP
// API end to end: health probe, voice enumeration, and a generation call
// saved to a local WAV file.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Flag names.
const (
	flagURL           = "url"
	flagText          = "text"
	flagVoice         = "voice"
	flagVariation     = "variation"
	flagOutput        = "output"
	flagSpeed         = "speed"
	flagNFEStep       = "nfe-step"
	flagCrossFade     = "cross-fade"
	flagSeed          = "seed"
	flagRemoveSilence = "remove-silence"
	flagListVoices    = "list-voices"
	flagHealth        = "health"
)

// Flag descriptions.
const (
	flagURLDesc           = "Base URL of the voice-clone-service"
	flagTextDesc          = "Text to synthesize"
	flagVoiceDesc         = "Voice profile identifier"
	flagVariationDesc     = "Reference pair variation (defaults to the voice identifier)"
	flagOutputDesc        = "Output file path (.wav)"
	flagSpeedDesc         = "Playback speed multiplier"
	flagNFEStepDesc       = "NFE steps for the flow matching solver"
	flagCrossFadeDesc     = "Cross-fade duration in seconds between generated segments"
	flagSeedDesc          = "Sampling seed (-1 for random)"
	flagRemoveSilenceDesc = "Trim long silences from the output"
	flagListVoicesDesc    = "List available voices and exit"
	flagHealthDesc        = "Check service health and exit"
)

// Defaults.
const (
	defaultBaseURL    = "http://localhost:7861"
	defaultOutputFile = "output.wav"
	requestTimeout    = 10 * time.Minute
	probeTimeout      = 10 * time.Second
)

// Error messages.
const (
	errTextAndVoiceRequired = "both --text and --voice must be provided"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	baseURL       string
	text          string
	voice         string
	variation     string
	output        string
	speed         float64
	nfeStep       int
	crossFade     float64
	seed          int64
	removeSilence bool
	listVoices    bool
	health        bool
}

// generatePayload mirrors the POST /generate request body.
type generatePayload struct {
	VoiceID           string  `json:"voice_id"`
	Variation         string  `json:"variation,omitempty"`
	Text              string  `json:"text"`
	Speed             float64 `json:"speed"`
	NFEStep           int     `json:"nfe_step"`
	CrossFadeDuration float64 `json:"cross_fade_duration"`
	Seed              int64   `json:"seed"`
	RemoveSilence     bool    `json:"remove_silence"`
}

// errorPayload mirrors the service error body.
type errorPayload struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

// healthPayload mirrors GET /health.
type healthPayload struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// voicesPayload mirrors GET /voices.
type voicesPayload struct {
	Voices []struct {
		VoiceID    string   `json:"voice_id"`
		Variations []string `json:"variations"`
	} `json:"voices"`
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()
	client := &http.Client{Timeout: requestTimeout}

	if flags.health {
		return checkHealth(client, flags.baseURL)
	}

	if flags.listVoices {
		return listVoices(client, flags.baseURL)
	}

	if flags.text == "" || flags.voice == "" {
		flag.Usage()

		return errors.New(errTextAndVoiceRequired)
	}

	return generate(client, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.baseURL, flagURL, defaultBaseURL, flagURLDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.variation, flagVariation, "", flagVariationDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.Float64Var(&flags.speed, flagSpeed, 1.0, flagSpeedDesc)
	flag.IntVar(&flags.nfeStep, flagNFEStep, 32, flagNFEStepDesc)
	flag.Float64Var(&flags.crossFade, flagCrossFade, 0.15, flagCrossFadeDesc)
	flag.Int64Var(&flags.seed, flagSeed, -1, flagSeedDesc)
	flag.BoolVar(&flags.removeSilence, flagRemoveSilence, false, flagRemoveSilenceDesc)
	flag.BoolVar(&flags.listVoices, flagListVoices, false, flagListVoicesDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

// checkHealth probes GET /health and prints the model state.
func checkHealth(client *http.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	var health healthPayload

	err = json.NewDecoder(resp.Body).Decode(&health)
	if err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}

	fmt.Printf("status=%s model_loaded=%t\n", health.Status, health.ModelLoaded)

	return nil
}

// listVoices prints every voice and its variations.
func listVoices(client *http.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/voices", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create voices request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to list voices from %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	var listing voicesPayload

	err = json.NewDecoder(resp.Body).Decode(&listing)
	if err != nil {
		return fmt.Errorf("failed to decode voices response: %w", err)
	}

	for _, voice := range listing.Voices {
		fmt.Printf("%s: %v\n", voice.VoiceID, voice.Variations)
	}

	return nil
}

// generate posts a synthesis request and writes the WAV response to disk.
func generate(client *http.Client, flags appFlags) error {
	payload := generatePayload{
		VoiceID:           flags.voice,
		Variation:         flags.variation,
		Text:              flags.text,
		Speed:             flags.speed,
		NFEStep:           flags.nfeStep,
		CrossFadeDuration: flags.crossFade,
		Seed:              flags.seed,
		RemoveSilence:     flags.removeSilence,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		flags.baseURL+"/generate",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create generate request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServiceError(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio response: %w", err)
	}

	err = os.WriteFile(flags.output, audioData, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.output, err)
	}

	fmt.Printf("Generated %d bytes -> %s (seed %s)\n",
		len(audioData), flags.output, resp.Header.Get("X-Seed"))

	return nil
}

// decodeServiceError turns a structured error body into a readable error,
// falling back to the raw body for non-JSON responses.
func decodeServiceError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var serviceErr errorPayload

	err := json.Unmarshal(raw, &serviceErr)
	if err == nil && serviceErr.Detail != "" {
		return fmt.Errorf("service error (%s): %s (code: %s)",
			resp.Status, serviceErr.Detail, serviceErr.ErrorCode)
	}

	return fmt.Errorf("service returned %s: %s", resp.Status, string(raw))
}
