// Package worker provides the optional NATS job lane: it consumes text
// processed events from the book-expert pipeline and answers with generated
// audio artifacts, synthesized with a stored voice profile instead of a
// fixed model voice.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/text"
	"github.com/book-expert/voice-clone-service/internal/voices"
)

const handleMessageTimeout = 10 * time.Minute

// NatsWorker listens for synthesis jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	catalog        *voices.Catalog
	synth          core.SpeechSynthesizer
	normalizer     *text.Normalizer
	defaultVoiceID string
	log            *logger.Logger
}

// New creates a worker bound to the given subject. Events that carry no
// voice name fall back to defaultVoiceID.
func New(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	catalog *voices.Catalog,
	synth core.SpeechSynthesizer,
	defaultVoiceID string,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		catalog:        catalog,
		synth:          synth,
		normalizer:     text.NewNormalizer(),
		defaultVoiceID: defaultVoiceID,
		log:            log,
	}
}

// Run subscribes to the subject and blocks until the context ends, then
// drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal event: %v", err)

		return
	}

	audioKey, processErr := w.processJob(ctx, &event)
	if processErr != nil {
		w.log.Error("Failed to process job for workflow %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	replyErr := w.publishReply(msg, replyEvent)
	if replyErr != nil {
		w.log.Error("Failed to publish reply for workflow %s: %v", event.Header.WorkflowID, replyErr)
	}
}

// processJob downloads the text, synthesizes it with the requested voice
// profile, and uploads the resulting WAV.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text for key %q: %w", event.TextKey, err)
	}

	voiceID := event.Voice
	if voiceID == "" {
		voiceID = w.defaultVoiceID
	}

	pair, resolveErr := w.catalog.Resolve(voiceID, "")
	if resolveErr != nil {
		return "", fmt.Errorf("failed to resolve voice profile %q: %w", voiceID, resolveErr)
	}

	opts := core.NewSynthesisOptions()
	opts.Seed = int64(event.Seed)
	opts.Seed = opts.ResolveSeed()

	genText := w.normalizer.Normalize(string(textData))

	audioData, synthErr := w.synth.Synthesize(ctx, pair, genText, opts)
	if synthErr != nil {
		return "", fmt.Errorf("failed to synthesize audio: %w", synthErr)
	}

	audioKey := uuid.NewString() + ".wav"

	uploadErr := w.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf("failed to upload audio for key %q: %w", audioKey, uploadErr)
	}

	return audioKey, nil
}

func (w *NatsWorker) publishReply(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}
