package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/config"
	"github.com/Vovarama1992/voicenotes/internal/delivery"
	ws "github.com/Vovarama1992/voicenotes/internal/delivery/ws"
	"github.com/Vovarama1992/voicenotes/internal/domain"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/infra"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {

	// CONFIG
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("config: " + err.Error())
	}

	// LOGGER
	zcore, err := newZap(cfg.Logging)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// METRICS
	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// STT
	stt, err := newSTT(cfg.Transcription)
	if err != nil {
		panic("stt: " + err.Error())
	}

	// ARCHIVE
	var archive ports.RecordingArchive
	if cfg.Archive.Enabled {
		db, err := infra.OpenSQLite(ctx, cfg.Archive.Path)
		if err != nil {
			panic("archive: " + err.Error())
		}
		defer db.Close()
		archive = infra.NewSQLiteRecordingRepo(db)
	}

	// WS HUB
	hub := ws.NewHub(m, zl)

	// STATIONS
	s1 := stations.NewS1DecodeAudio()
	s2 := stations.NewS2PCMtoWAV()
	s3 := stations.NewS3WAVtoText(stt, s2, cfg.Audio.TempDir, zl)

	// RECORDING STORE (оркестратор)
	scheduler := domain.NewTranscriptionScheduler(s3, hub, m, zl, domain.SchedulerConfig{
		ThresholdBytes:  cfg.Audio.TranscriptionThresholdBytes,
		MaxPendingBytes: cfg.Audio.MaxPendingBytes,
	})
	finalizer := domain.NewSessionFinalizer(scheduler, s2, cfg.Audio.OutputDir, hub, archive, m, zl)
	store := domain.NewRecordingStore(scheduler, finalizer, hub, archive, m, zl)

	restored, err := store.Restore(ctx)
	if err != nil {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "archive restore failed",
			Error:   err,
		})
	}

	// HANDLERS
	hRec := delivery.NewRecordingHandler(store, s1, zl)

	// ROUTER
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(delivery.MetricsMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	delivery.RegisterRoutes(r, hRec)

	r.Get("/ws", ws.WSHandler(hub, store, ws.ClientConfig{
		SendBuffer:   cfg.WebSocket.SendBuffer,
		WriteTimeout: cfg.WebSocket.WriteTimeout(),
		PingInterval: cfg.WebSocket.PingInterval(),
	}, zl))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "server started",
			Fields: map[string]any{
				"addr":     cfg.HTTP.Address,
				"provider": cfg.Transcription.Provider,
				"restored": restored,
			},
		})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "server crashed",
			Error:   err,
		})
	}

	// an open recording still gets its file
	if sum, err := store.StopSession(context.Background()); err == nil || errors.Is(err, domain.ErrEncodingFailure) {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "open recording finalized on shutdown",
			Error:   err,
			Fields:  map[string]any{"recordingID": sum.ID},
		})
	}
}

func newZap(cfg config.LoggingConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newSTT(cfg config.TranscriptionConfig) (ports.STTService, error) {
	switch cfg.Provider {
	case "yandex":
		return infra.NewYandexSTTService(infra.YandexConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Lang:     cfg.Language,
			Timeout:  cfg.Timeout(),
		})
	default:
		return infra.NewWhisperSTTService(infra.WhisperConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Language:   cfg.Language,
			Timeout:    cfg.Timeout(),
			MaxRetries: cfg.MaxRetries,
		})
	}
}
