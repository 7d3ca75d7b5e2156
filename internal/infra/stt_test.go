package infra

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/stretchr/testify/require"
)

func testClip(pcm []byte) io.Reader {
	return bytes.NewReader(stations.NewS2PCMtoWAV().Run(pcm))
}

func TestWhisperRecognize(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "en", r.FormValue("language"))
		require.Equal(t, "json", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "temp_abc.wav", hdr.Filename)

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		got, err := stations.DecodeWAV(data)
		require.NoError(t, err)
		require.Equal(t, pcm, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  hello there \n"}`))
	}))
	defer srv.Close()

	stt, err := NewWhisperSTTService(WhisperConfig{Endpoint: srv.URL, APIKey: "sk-test", Language: "en"})
	require.NoError(t, err)

	text, err := stt.Recognize(context.Background(), "temp_abc.wav", testClip(pcm))
	require.NoError(t, err)
	require.Equal(t, "hello there", text)
}

func TestWhisperRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"text":"second time lucky"}`))
	}))
	defer srv.Close()

	stt, err := NewWhisperSTTService(WhisperConfig{Endpoint: srv.URL, APIKey: "k", MaxRetries: 1})
	require.NoError(t, err)

	text, err := stt.Recognize(context.Background(), "a.wav", testClip([]byte{0, 0}))
	require.NoError(t, err)
	require.Equal(t, "second time lucky", text)
	require.EqualValues(t, 2, hits.Load())
}

func TestWhisperDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"audio too short"}}`))
	}))
	defer srv.Close()

	stt, err := NewWhisperSTTService(WhisperConfig{Endpoint: srv.URL, APIKey: "k", MaxRetries: 3})
	require.NoError(t, err)

	_, err = stt.Recognize(context.Background(), "a.wav", testClip([]byte{0, 0}))
	require.ErrorContains(t, err, "audio too short")
	require.EqualValues(t, 1, hits.Load())
}

func TestWhisperGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	stt, err := NewWhisperSTTService(WhisperConfig{Endpoint: srv.URL, APIKey: "k", MaxRetries: 1, Timeout: time.Second})
	require.NoError(t, err)

	_, err = stt.Recognize(context.Background(), "a.wav", testClip([]byte{0, 0}))
	require.ErrorContains(t, err, "429")
	require.EqualValues(t, 2, hits.Load())
}

func TestWhisperRequiresKey(t *testing.T) {
	_, err := NewWhisperSTTService(WhisperConfig{})
	require.Error(t, err)
}

func TestYandexRecognize(t *testing.T) {
	pcm := []byte{5, 6, 7, 8}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Api-Key y-test", r.Header.Get("Authorization"))
		require.Equal(t, "lpcm", r.URL.Query().Get("format"))
		require.Equal(t, "16000", r.URL.Query().Get("sampleRateHertz"))
		require.Equal(t, "ru-RU", r.URL.Query().Get("lang"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, pcm, body, "raw pcm, no wav header")

		_, _ = w.Write([]byte(`{"result":"привет"}`))
	}))
	defer srv.Close()

	stt, err := NewYandexSTTService(YandexConfig{Endpoint: srv.URL, APIKey: "y-test", Lang: "ru"})
	require.NoError(t, err)

	text, err := stt.Recognize(context.Background(), "clip.wav", testClip(pcm))
	require.NoError(t, err)
	require.Equal(t, "привет", text)
}

func TestYandexReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_code":"UNAUTHORIZED","error_message":"bad key"}`))
	}))
	defer srv.Close()

	stt, err := NewYandexSTTService(YandexConfig{Endpoint: srv.URL, APIKey: "nope"})
	require.NoError(t, err)

	_, err = stt.Recognize(context.Background(), "clip.wav", testClip([]byte{0, 0}))
	require.ErrorContains(t, err, "bad key")

	_, err = stt.Recognize(context.Background(), "clip.wav", bytes.NewReader([]byte("not a wav")))
	require.ErrorIs(t, err, stations.ErrInvalidWAV)
}
