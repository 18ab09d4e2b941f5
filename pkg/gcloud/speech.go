package gcloud

import (
	"context"
	"encoding/base64"
	"fmt"

	speech "google.golang.org/api/speech/v1"
)

// Language is the fixed spoken language of the bot's users.
const Language = "th-TH"

// SpeechRecognizer runs synchronous recognition over Speech-to-Text v1.
type SpeechRecognizer struct {
	svc *speech.Service
}

// NewSpeechRecognizer creates a recognizer over the given service.
func NewSpeechRecognizer(svc *speech.Service) *SpeechRecognizer {
	return &SpeechRecognizer{svc: svc}
}

// Recognize transcribes mono PCM16 audio. It returns the top alternative of
// the first result, or an empty transcript when the recognizer produced no
// results at all (the caller substitutes its sentinel).
func (r *SpeechRecognizer) Recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            int64(sampleRate),
			LanguageCode:               Language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(pcm),
		},
	}

	resp, err := r.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gcloud: recognize: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return "", nil
	}
	return resp.Results[0].Alternatives[0].Transcript, nil
}
