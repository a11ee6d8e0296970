package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestParseFlags verifies that command-line flags are parsed correctly.
func TestParseFlags(t *testing.T) {
	oldArgs := os.Args

	t.Cleanup(func() { os.Args = oldArgs })

	tests := []struct {
		name          string
		args          []string
		wantText      string
		wantVoice     string
		wantSeed      int64
		wantCrossFade float64
	}{
		{
			name:          "text and voice",
			args:          []string{"cmd", "--text", "Hello, world!", "--voice", "narrator"},
			wantText:      "Hello, world!",
			wantVoice:     "narrator",
			wantSeed:      -1,
			wantCrossFade: 0.15,
		},
		{
			name:          "explicit seed",
			args:          []string{"cmd", "--text", "Hi", "--voice", "narrator", "--seed", "42"},
			wantText:      "Hi",
			wantVoice:     "narrator",
			wantSeed:      42,
			wantCrossFade: 0.15,
		},
		{
			name: "explicit cross fade",
			args: []string{
				"cmd", "--text", "Hi", "--voice", "narrator", "--cross-fade", "0.5",
			},
			wantText:      "Hi",
			wantVoice:     "narrator",
			wantSeed:      -1,
			wantCrossFade: 0.5,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			// Reset flag parsing state for each test run to ensure isolation.
			flag.CommandLine = flag.NewFlagSet(testCase.name, flag.ContinueOnError)
			os.Args = testCase.args

			flags := parseFlags()

			if flags.text != testCase.wantText {
				t.Errorf("Expected text flag %q, got %q", testCase.wantText, flags.text)
			}

			if flags.voice != testCase.wantVoice {
				t.Errorf("Expected voice flag %q, got %q", testCase.wantVoice, flags.voice)
			}

			if flags.seed != testCase.wantSeed {
				t.Errorf("Expected seed flag %d, got %d", testCase.wantSeed, flags.seed)
			}

			if flags.crossFade != testCase.wantCrossFade {
				t.Errorf("Expected cross-fade flag %g, got %g",
					testCase.wantCrossFade, flags.crossFade)
			}
		})
	}
}

func TestGenerate_WritesAudioFile(t *testing.T) {
	t.Parallel()

	wantAudio := []byte("RIFF-fake-wav-bytes")

	testServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/generate" || request.Method != http.MethodPost {
				http.NotFound(writer, request)

				return
			}

			var payload generatePayload
			if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
				http.Error(writer, err.Error(), http.StatusBadRequest)

				return
			}

			if payload.VoiceID != "narrator" || payload.Text != "Hello." {
				http.Error(writer, "unexpected payload", http.StatusBadRequest)

				return
			}

			if payload.CrossFadeDuration != 0.5 {
				http.Error(writer, "unexpected cross fade", http.StatusBadRequest)

				return
			}

			writer.Header().Set("Content-Type", "audio/wav")
			writer.Header().Set("X-Seed", "42")
			_, _ = writer.Write(wantAudio)
		}))
	t.Cleanup(testServer.Close)

	outputPath := filepath.Join(t.TempDir(), "out.wav")
	flags := appFlags{
		baseURL:   testServer.URL,
		text:      "Hello.",
		voice:     "narrator",
		output:    outputPath,
		speed:     1.0,
		nfeStep:   32,
		crossFade: 0.5,
		seed:      42,
	}

	err := generate(testServer.Client(), flags)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	written, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}

	if string(written) != string(wantAudio) {
		t.Errorf("Expected %q written to disk, got %q", wantAudio, written)
	}
}

func TestGenerate_ReportsServiceError(t *testing.T) {
	t.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(writer).Encode(errorPayload{
				Detail:    "voice 'ghost' not found",
				ErrorCode: "voice_not_found",
			})
		}))
	t.Cleanup(testServer.Close)

	flags := appFlags{
		baseURL: testServer.URL,
		text:    "Hello.",
		voice:   "ghost",
		output:  filepath.Join(t.TempDir(), "out.wav"),
	}

	err := generate(testServer.Client(), flags)
	if err == nil {
		t.Fatal("Expected an error but got none")
	}

	if !strings.Contains(err.Error(), "voice 'ghost' not found") {
		t.Errorf("Expected error to contain the service detail, got %q", err.Error())
	}

	if !strings.Contains(err.Error(), "voice_not_found") {
		t.Errorf("Expected error to contain the error code, got %q", err.Error())
	}
}

func TestGenerate_NonJSONErrorBody(t *testing.T) {
	t.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, _ *http.Request) {
			http.Error(writer, "bad gateway", http.StatusBadGateway)
		}))
	t.Cleanup(testServer.Close)

	flags := appFlags{
		baseURL: testServer.URL,
		text:    "Hello.",
		voice:   "narrator",
		output:  filepath.Join(t.TempDir(), "out.wav"),
	}

	err := generate(testServer.Client(), flags)
	if err == nil {
		t.Fatal("Expected an error but got none")
	}

	if !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("Expected error to contain the raw body, got %q", err.Error())
	}
}
