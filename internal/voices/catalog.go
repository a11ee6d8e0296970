// Package voices resolves voice profiles stored on disk.
//
// A voice profile is a directory named after the voice identifier, holding
// one or more reference pairs: <variation>.wav next to <variation>.txt. The
// server never writes into the voices directory; administrators place the
// reference material there.
package voices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/book-expert/voice-clone-service/internal/core"
)

// Reference pair file extensions.
const (
	audioExtension      = ".wav"
	transcriptExtension = ".txt"
)

// Static errors.
var (
	// ErrVoiceIDEmpty indicates that no voice identifier was provided.
	ErrVoiceIDEmpty = errors.New("voice id cannot be empty")
	// ErrVoiceNotFound indicates that no directory exists for the voice identifier.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrVariationNotFound indicates that the reference audio for the variation is missing.
	ErrVariationNotFound = errors.New("variation not found")
	// ErrReferenceTextMissing indicates that the reference transcript for the variation is missing.
	ErrReferenceTextMissing = errors.New("reference transcript not found")
	// ErrUnsafeName indicates that a voice or variation name would escape the voices root.
	ErrUnsafeName = errors.New("name must not contain path separators")
)

// Voice describes one voice profile and its complete reference pairs.
type Voice struct {
	VoiceID    string   `json:"voice_id"`
	Variations []string `json:"variations"`
}

// Catalog resolves and enumerates voice profiles under a single root
// directory. Listing results are cached only while a filesystem watcher is
// running to report changes; without one, every listing rescans the disk so
// profiles added after startup still show up. Resolution always goes to disk
// because it is a handful of stats.
type Catalog struct {
	root    string
	log     *logger.Logger
	mu      sync.RWMutex
	cached  []Voice
	valid   bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCatalog creates a catalog rooted at dir. The directory does not have to
// exist yet; a missing root simply yields an empty listing.
func NewCatalog(dir string, log *logger.Logger) *Catalog {
	return &Catalog{
		root: dir,
		log:  log,
	}
}

// Resolve maps a voice identifier and optional variation name to the on-disk
// reference pair. An empty variation selects the pair named after the voice
// identifier itself.
func (c *Catalog) Resolve(voiceID, variation string) (core.ReferencePair, error) {
	if voiceID == "" {
		return core.ReferencePair{}, ErrVoiceIDEmpty
	}

	err := validateName(voiceID)
	if err != nil {
		return core.ReferencePair{}, err
	}

	if variation == "" {
		variation = voiceID
	}

	err = validateName(variation)
	if err != nil {
		return core.ReferencePair{}, fmt.Errorf("%w: %w", ErrVariationNotFound, err)
	}

	voiceDir := filepath.Join(c.root, voiceID)

	info, statErr := os.Stat(voiceDir)
	if statErr != nil || !info.IsDir() {
		return core.ReferencePair{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, voiceID)
	}

	audioPath := filepath.Join(voiceDir, variation+audioExtension)

	_, statErr = os.Stat(audioPath)
	if statErr != nil {
		return core.ReferencePair{}, fmt.Errorf(
			"%w: %q for voice %q", ErrVariationNotFound, variation, voiceID)
	}

	textPath := filepath.Join(voiceDir, variation+transcriptExtension)

	_, statErr = os.Stat(textPath)
	if statErr != nil {
		return core.ReferencePair{}, fmt.Errorf(
			"%w: variation %q of voice %q", ErrReferenceTextMissing, variation, voiceID)
	}

	return core.ReferencePair{
		VoiceID:   voiceID,
		Variation: variation,
		AudioPath: audioPath,
		TextPath:  textPath,
	}, nil
}

// List enumerates every voice that has at least one complete reference pair.
// A missing voices root yields an empty list, not an error.
func (c *Catalog) List() ([]Voice, error) {
	c.mu.RLock()

	if c.watcher != nil && c.valid {
		cached := c.cached
		c.mu.RUnlock()

		return cached, nil
	}

	c.mu.RUnlock()

	scanned, err := c.scan()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = scanned
	c.valid = true
	c.mu.Unlock()

	return scanned, nil
}

// Invalidate drops the cached listing so the next List rescans the disk.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.cached = nil
	c.mu.Unlock()
}

// Watch starts a filesystem watcher on the voices root that invalidates the
// listing cache whenever the directory changes.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create voices watcher: %w", err)
	}

	err = watcher.Add(c.root)
	if err != nil {
		closeErr := watcher.Close()
		if closeErr != nil {
			c.log.Warn("Failed to close voices watcher: %v", closeErr)
		}

		return fmt.Errorf("failed to watch voices directory %q: %w", c.root, err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	c.done = make(chan struct{})

	go c.watchLoop(watcher)

	return nil
}

// Close stops the filesystem watcher, if one was started. A closed catalog
// goes back to rescanning on every listing.
func (c *Catalog) Close() error {
	c.mu.Lock()
	watcher := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if watcher == nil {
		return nil
	}

	err := watcher.Close()

	<-c.done

	if err != nil {
		return fmt.Errorf("failed to close voices watcher: %w", err)
	}

	return nil
}

func (c *Catalog) watchLoop(watcher *fsnotify.Watcher) {
	defer close(c.done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			c.log.Info("Voices directory changed (%s), refreshing catalog", event.Name)
			c.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			c.log.Warn("Voices watcher error: %v", err)
		}
	}
}

// scan walks the voices root and collects every complete reference pair.
func (c *Catalog) scan() ([]Voice, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Voice{}, nil
		}

		return nil, fmt.Errorf("failed to read voices directory %q: %w", c.root, err)
	}

	result := make([]Voice, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		variations, scanErr := c.scanVoiceDir(filepath.Join(c.root, entry.Name()))
		if scanErr != nil {
			return nil, scanErr
		}

		if len(variations) == 0 {
			continue
		}

		result = append(result, Voice{
			VoiceID:    entry.Name(),
			Variations: variations,
		})
	}

	return result, nil
}

// scanVoiceDir returns the names of complete reference pairs in one voice
// directory, sorted for stable listings.
func (c *Catalog) scanVoiceDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice directory %q: %w", dir, err)
	}

	var variations []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) != audioExtension {
			continue
		}

		stem := strings.TrimSuffix(name, audioExtension)

		_, statErr := os.Stat(filepath.Join(dir, stem+transcriptExtension))
		if statErr != nil {
			// Orphan WAV without a transcript; not servable.
			continue
		}

		variations = append(variations, stem)
	}

	sort.Strings(variations)

	return variations, nil
}

// validateName rejects identifiers that could escape the voices root.
func validateName(name string) error {
	if name != filepath.Base(name) || name == ".." || name == "." {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	return nil
}
