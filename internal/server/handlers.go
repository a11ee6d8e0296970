package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/voices"
)

// Machine-readable error codes, one per error class of the API contract.
const (
	codeInvalidRequest    = "invalid_request"
	codeVoiceNotFound     = "voice_not_found"
	codeVariationNotFound = "variation_not_found"
	codeInferenceFailed   = "inference_failed"
	codeInternalError     = "internal_error"
)

// HTTP headers.
const (
	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	headerSeed               = "X-Seed"
	contentTypeJSON          = "application/json"
	contentTypeWAV           = "audio/wav"
)

// GenerateRequest is the JSON body of POST /generate. Optional fields are
// pointers so that an absent field and its zero value can be told apart.
type GenerateRequest struct {
	VoiceID           string   `json:"voice_id"`
	Variation         string   `json:"variation,omitempty"`
	Text              string   `json:"text"`
	Speed             *float64 `json:"speed,omitempty"`
	NFEStep           *int     `json:"nfe_step,omitempty"`
	CrossFadeDuration *float64 `json:"cross_fade_duration,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
	RemoveSilence     *bool    `json:"remove_silence,omitempty"`
}

// ErrorResponse is the JSON error body, shaped to match what the book-expert
// TTS HTTP client already parses.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// VoicesResponse is the JSON body of GET /voices.
type VoicesResponse struct {
	Voices []voices.Voice `json:"voices"`
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// handleGenerate synthesizes speech with a stored voice profile and streams
// the WAV back to the caller.
func (s *Server) handleGenerate(writer http.ResponseWriter, request *http.Request) {
	var generateReq GenerateRequest

	decodeErr := json.NewDecoder(request.Body).Decode(&generateReq)
	if decodeErr != nil {
		s.writeError(writer, http.StatusBadRequest, codeInvalidRequest,
			"invalid JSON body: "+decodeErr.Error())

		return
	}

	pair, resolveErr := s.catalog.Resolve(generateReq.VoiceID, generateReq.Variation)
	if resolveErr != nil {
		s.writeResolveError(writer, resolveErr)

		return
	}

	if strings.TrimSpace(generateReq.Text) == "" {
		s.writeError(writer, http.StatusBadRequest, codeInvalidRequest,
			"text parameter is required and cannot be empty")

		return
	}

	opts, optsErr := buildOptions(generateReq)
	if optsErr != nil {
		s.writeError(writer, http.StatusBadRequest, codeInvalidRequest, optsErr.Error())

		return
	}

	// Pin the seed here so it can be reported back to the caller.
	opts.Seed = opts.ResolveSeed()

	genText := s.normalizer.Normalize(generateReq.Text)

	audioData, synthErr := s.synth.Synthesize(request.Context(), pair, genText, opts)
	if synthErr != nil {
		s.log.Error("Synthesis failed for voice %s/%s: %v", pair.VoiceID, pair.Variation, synthErr)
		s.writeError(writer, http.StatusInternalServerError, codeInferenceFailed,
			"model inference error: "+synthErr.Error())

		return
	}

	filename := fmt.Sprintf("%s_%s.wav", pair.VoiceID, pair.Variation)

	writer.Header().Set(headerContentType, contentTypeWAV)
	writer.Header().Set(headerContentDisposition, `attachment; filename=`+filename)
	writer.Header().Set(headerSeed, strconv.FormatInt(opts.Seed, 10))
	writer.WriteHeader(http.StatusOK)

	_, writeErr := writer.Write(audioData)
	if writeErr != nil {
		s.log.Warn("Failed to stream audio response: %v", writeErr)
	}
}

// handleListVoices enumerates the voice profiles found on disk.
func (s *Server) handleListVoices(writer http.ResponseWriter, _ *http.Request) {
	list, err := s.catalog.List()
	if err != nil {
		s.log.Error("Failed to list voices: %v", err)
		s.writeError(writer, http.StatusInternalServerError, codeInternalError,
			"failed to enumerate voices: "+err.Error())

		return
	}

	s.writeJSON(writer, http.StatusOK, VoicesResponse{Voices: list})
}

// handleHealth reports liveness and whether the model engine passed its
// startup probe.
func (s *Server) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, http.StatusOK, HealthResponse{
		Status:      "ok",
		ModelLoaded: s.synth.Ready(),
	})
}

// buildOptions merges request parameters over the model defaults and
// validates the result.
func buildOptions(req GenerateRequest) (core.SynthesisOptions, error) {
	opts := core.NewSynthesisOptions()

	if req.Speed != nil {
		opts.Speed = *req.Speed
	}

	if req.NFEStep != nil {
		opts.NFESteps = *req.NFEStep
	}

	if req.CrossFadeDuration != nil {
		opts.CrossFadeDuration = *req.CrossFadeDuration
	}

	if req.Seed != nil {
		opts.Seed = *req.Seed
	}

	if req.RemoveSilence != nil {
		opts.RemoveSilence = *req.RemoveSilence
	}

	err := opts.Validate()
	if err != nil {
		return core.SynthesisOptions{}, err
	}

	return opts, nil
}

// writeResolveError maps catalog errors onto the API error contract. Unsafe
// names are reported as not-found rather than echoing path mechanics back;
// an unsafe variation carries ErrVariationNotFound as well, so the variation
// branch must come first.
func (s *Server) writeResolveError(writer http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, voices.ErrVoiceIDEmpty):
		s.writeError(writer, http.StatusBadRequest, codeInvalidRequest, "voice_id is required")
	case errors.Is(err, voices.ErrVariationNotFound),
		errors.Is(err, voices.ErrReferenceTextMissing):
		s.writeError(writer, http.StatusNotFound, codeVariationNotFound, err.Error())
	case errors.Is(err, voices.ErrVoiceNotFound), errors.Is(err, voices.ErrUnsafeName):
		s.writeError(writer, http.StatusNotFound, codeVoiceNotFound, err.Error())
	default:
		s.log.Error("Voice resolution failed: %v", err)
		s.writeError(writer, http.StatusInternalServerError, codeInternalError, err.Error())
	}
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set(headerContentType, contentTypeJSON)
	writer.WriteHeader(status)

	err := json.NewEncoder(writer).Encode(payload)
	if err != nil {
		s.log.Warn("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) writeError(writer http.ResponseWriter, status int, code, detail string) {
	s.writeJSON(writer, status, ErrorResponse{
		Detail:    detail,
		ErrorCode: code,
	})
}
