package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

const DefaultYandexEndpoint = "https://stt.api.cloud.yandex.net/speech/v1/stt:recognize"

// SpeechKit wants a region-qualified code; bare ISO-639 names are mapped.
var speechKitLangs = map[string]string{
	"en": "en-US",
	"ru": "ru-RU",
	"de": "de-DE",
	"fr": "fr-FR",
	"es": "es-ES",
	"uz": "uz-UZ",
	"kk": "kk-KZ",
	"tr": "tr-TR",
}

type YandexConfig struct {
	Endpoint string
	APIKey   string
	Lang     string
	Timeout  time.Duration
}

type YandexSTTService struct {
	cfg    YandexConfig
	client *http.Client
}

func NewYandexSTTService(cfg YandexConfig) (ports.STTService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("yandex: api key is empty")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultYandexEndpoint
	}
	if full, ok := speechKitLangs[cfg.Lang]; ok {
		cfg.Lang = full
	}
	if cfg.Lang == "" {
		cfg.Lang = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &YandexSTTService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type yandexResponse struct {
	Result string `json:"result"`
	Error  string `json:"error_message"`
}

// Recognize sends the clip's raw PCM: SpeechKit takes lpcm, not WAV.
func (s *YandexSTTService) Recognize(ctx context.Context, _ string, clip io.Reader) (string, error) {
	wav, err := io.ReadAll(clip)
	if err != nil {
		return "", fmt.Errorf("yandex read clip: %w", err)
	}
	pcm, err := stations.DecodeWAV(wav)
	if err != nil {
		return "", fmt.Errorf("yandex clip: %w", err)
	}

	q := url.Values{}
	q.Set("lang", s.cfg.Lang)
	q.Set("format", "lpcm")
	q.Set("sampleRateHertz", strconv.Itoa(stations.SampleRate))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint+"?"+q.Encode(), bytes.NewReader(pcm))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Api-Key "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yandex stt request: %w", err)
	}
	defer resp.Body.Close()

	rawResp, _ := io.ReadAll(resp.Body)

	var parsed yandexResponse
	_ = json.Unmarshal(rawResp, &parsed)

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return "", fmt.Errorf("yandex stt http %d: %s", resp.StatusCode, parsed.Error)
		}
		return "", fmt.Errorf("yandex stt http %d", resp.StatusCode)
	}

	if parsed.Error != "" {
		return "", errors.New(parsed.Error)
	}

	return parsed.Result, nil
}
