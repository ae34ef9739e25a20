package stt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/fault"
	"github.com/outlaylabs/outlay/internal/media"
)

// OpenAIRecognizer transcribes WAV captures through an OpenAI-compatible
// audio transcription endpoint.
type OpenAIRecognizer struct {
	client *openai.Client
	model  string
}

// NewOpenAIRecognizer builds the production recognizer from runtime config.
// The base URL may point at any server speaking the OpenAI transcription API.
func NewOpenAIRecognizer(cfg config.OpenAIConfig, apiKey string) (*OpenAIRecognizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.TimeoutMS > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	}

	model := cfg.TranscribeModel
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Transcribe submits the capture and returns the response text verbatim.
func (r *OpenAIRecognizer) Transcribe(ctx context.Context, capture media.Capture) (string, error) {
	if len(capture.Bytes) == 0 {
		return "", fault.New(fault.KindTranscriptionFailed, "capture is empty")
	}

	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		Reader:   bytes.NewReader(capture.Bytes),
		FilePath: "recording.wav",
	})
	if err != nil {
		return "", fault.Wrap(fault.KindTranscriptionFailed, "transcription request failed", err)
	}

	return resp.Text, nil
}
