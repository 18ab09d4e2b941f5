// Package voice turns a referenced audio clip into a transcript.
//
// The pipeline fetches the raw clip from the messaging platform, transcodes
// its container to 16 kHz mono PCM16 and runs speech recognition on it. The
// raw clip is archived to the blob store in a detached goroutine regardless
// of whether transcription succeeds; archival failures are logged, never
// surfaced to the user.
package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/natthaphol/sangbot/internal/log"
)

// Error kinds of the ingest path. Each maps to the same fixed user-facing
// fallback reply; they are distinct so logs can tell the stages apart.
var (
	ErrFetch       = errors.New("voice: upstream fetch failed")
	ErrTranscode   = errors.New("voice: transcode failed")
	ErrRecognition = errors.New("voice: recognition failed")
)

// UnclearTranscript is substituted when the recognizer returns no result.
// It is not an error: it flows into the command parser, which fails to match
// the grammar and produces the standard not-understood reply.
const UnclearTranscript = "ไม่ชัดค่ะ"

// archiveTimeout bounds the detached archive write, which outlives the
// per-event deadline on purpose.
const archiveTimeout = 30 * time.Second

// Fetcher retrieves the raw audio container bytes for a message ID.
type Fetcher interface {
	Content(ctx context.Context, messageID string) ([]byte, error)
}

// Recognizer transcribes linear PCM16 audio. An empty transcript with a nil
// error means the recognizer produced no result.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// Archiver persists a raw clip under the given name.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// Pipeline is the voice ingestion pipeline.
type Pipeline struct {
	fetcher    Fetcher
	recognizer Recognizer
	archiver   Archiver

	// transcode is swappable in tests.
	transcode func(ctx context.Context, data []byte) ([]byte, error)

	// archived, when non-nil, receives the result of every archive
	// attempt. Tests use it to observe the detached writes.
	archived chan<- error
}

// NewPipeline creates a Pipeline. The archiver may be nil, in which case
// clips are not persisted.
func NewPipeline(fetcher Fetcher, recognizer Recognizer, archiver Archiver) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		recognizer: recognizer,
		archiver:   archiver,
		transcode:  Transcode,
	}
}

// Ingest resolves a message ID to a transcript. Aborting errors wrap one of
// ErrFetch, ErrTranscode or ErrRecognition; a recognizer that simply hears
// nothing yields UnclearTranscript and no error.
func (p *Pipeline) Ingest(ctx context.Context, messageID string) (string, error) {
	data, err := p.fetcher.Content(ctx, messageID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	// Raw bytes are in hand: archive no matter what happens next.
	p.archive(messageID, data)

	pcm, err := p.transcode(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscode, err)
	}

	transcript, err := p.recognizer.Recognize(ctx, pcm, SampleRate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	if transcript == "" {
		transcript = UnclearTranscript
	}
	return transcript, nil
}

// archive writes the raw clip in its own goroutine with its own deadline,
// decoupled from the reply-critical path.
func (p *Pipeline) archive(messageID string, data []byte) {
	if p.archiver == nil {
		return
	}

	name := fmt.Sprintf("voice_%d.m4a", time.Now().UnixMilli())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		err := p.archiver.Archive(ctx, name, data)
		if err != nil {
			log.Warn("voice: clip archive failed",
				"message_id", messageID, "name", name, "error", err)
		}
		if p.archived != nil {
			p.archived <- err
		}
	}()
}
