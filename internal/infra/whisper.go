package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/ports"
)

const DefaultWhisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"

type WhisperConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Language   string
	Timeout    time.Duration
	MaxRetries int
}

// WhisperSTTService talks to an OpenAI-compatible /audio/transcriptions
// endpoint.
type WhisperSTTService struct {
	cfg    WhisperConfig
	client *http.Client
}

func NewWhisperSTTService(cfg WhisperConfig) (ports.STTService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("whisper: api key is empty")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultWhisperEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &WhisperSTTService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type whisperResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// retryableError marks failures worth another attempt: transport errors,
// 429 and 5xx.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func (s *WhisperSTTService) Recognize(ctx context.Context, name string, clip io.Reader) (string, error) {
	wav, err := io.ReadAll(clip)
	if err != nil {
		return "", fmt.Errorf("whisper read clip: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		txt, err := s.do(ctx, name, wav)
		if err == nil {
			return txt, nil
		}
		lastErr = err

		var re retryableError
		if !errors.As(err, &re) {
			break
		}
	}
	return "", lastErr
}

func (s *WhisperSTTService) do(ctx context.Context, name string, wav []byte) (string, error) {
	body, contentType, err := s.form(name, wav)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", retryableError{fmt.Errorf("whisper request: %w", err)}
	}
	defer resp.Body.Close()

	rawResp, _ := io.ReadAll(resp.Body)

	var parsed whisperResponse
	_ = json.Unmarshal(rawResp, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(rawResp))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		err := fmt.Errorf("whisper http %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", retryableError{err}
		}
		return "", err
	}

	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", errors.New(parsed.Error.Message)
	}
	return strings.TrimSpace(parsed.Text), nil
}

func (s *WhisperSTTService) form(name string, wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("whisper form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, "", fmt.Errorf("whisper form file: %w", err)
	}

	fields := map[string]string{
		"model":           s.cfg.Model,
		"response_format": "json",
	}
	if s.cfg.Language != "" {
		fields["language"] = s.cfg.Language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("whisper form field %s: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
