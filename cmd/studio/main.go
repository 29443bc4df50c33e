package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"presenter-studio/internal/assembly"
	"presenter-studio/internal/config"
	"presenter-studio/internal/enhance"
	"presenter-studio/internal/events"
	"presenter-studio/internal/handler"
	"presenter-studio/internal/imagestage"
	"presenter-studio/internal/logger"
	"presenter-studio/internal/media"
	"presenter-studio/internal/presenter"
	"presenter-studio/internal/provider"
	"presenter-studio/internal/retry"
	"presenter-studio/internal/script"
	"presenter-studio/internal/segment"
	"presenter-studio/internal/session"
	"presenter-studio/internal/storage"
)

// connectPolicy bounds start-up connection attempts to Redis and RabbitMQ.
var connectPolicy = retry.Policy{MaxAttempts: 20, Interval: 3 * time.Second}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.Logger.Level), zap.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := presenter.Load(cfg.PresentersFile)
	if err != nil {
		zap.L().Fatal("Failed to load presenter catalogue", zap.Error(err))
	}
	zap.L().Info("Presenter catalogue loaded",
		zap.String("version", registry.Version()),
		zap.Int("presenters", len(registry.List())),
	)

	objects, staticDir, closeStorage, err := setupStorage(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up object storage", zap.Error(err))
	}
	defer closeStorage()

	store, err := session.NewFileStore(cfg.SessionsDir)
	if err != nil {
		zap.L().Fatal("Failed to open session store", zap.Error(err))
	}

	locker, closeLocker, err := setupLocker(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer closeLocker()

	publisher, err := setupPublisher(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Error closing event publisher", zap.Error(err))
		}
	}()

	p := cfg.Pipeline
	throttle := retry.Policy{MaxAttempts: p.ThrottleMaxAttempts, Interval: p.ThrottleBackoff}

	imageClient := provider.NewClient("image", cfg.ImageProvider, log)
	videoClient := provider.NewClient("video", cfg.VideoProvider, log)

	references := imagestage.New(imageClient, objects, imagestage.Options{
		Poll:        retry.Policy{Interval: p.PollInterval, Timeout: p.ImagePollTimeout},
		Throttle:    throttle,
		AspectRatio: cfg.ImageProvider.AspectRatio,
	}, log)

	segments := segment.New(videoClient, segment.Options{
		Poll:            retry.Policy{Interval: p.PollInterval, Timeout: p.PollTimeout},
		Throttle:        throttle,
		Download:        retry.Policy{MaxAttempts: p.DownloadMaxAttempts, Interval: p.DownloadBackoff},
		AspectRatio:     cfg.VideoProvider.AspectRatio,
		DescriptorWords: p.PromptDescriptorMax,
	}, log)

	m := cfg.Media
	encoding := media.Encoding{Width: m.Width, Height: m.Height, FPS: m.FPS, SampleRate: m.AudioSampleRate}
	ffmpeg := media.NewFFmpeg(m.FFmpegPath, log)

	assembler := assembly.New(ffmpeg, media.NewFFprobe(m.FFprobePath), assembly.Options{
		Encoding:      encoding,
		FlashDuration: m.FlashDuration,
		Tolerance:     m.DurationTolerance,
	}, log)

	enhancer := enhance.New(ffmpeg, enhance.Options{
		Encoding:      encoding,
		FlashDuration: m.FlashDuration,
		Subtitles:     media.SubtitleStyle{Font: m.SubtitleFont},
		CardFontFile:  m.CardFontFile,
	}, log)

	manager := session.NewManager(session.Config{
		Script:             script.Options{WordsPerSecond: p.WordsPerSecond, Locale: p.Locale},
		DefaultStyle:       p.ProgressionStyle,
		OutroPath:          cfg.OutroPath,
		InsertFlashes:      m.InsertFlashes,
		CoolingPeriod:      p.CoolingPeriod,
		SegmentConcurrency: p.SegmentConcurrency,
	}, session.Dependencies{
		Presenters: registry,
		References: references,
		Segments:   segments,
		Assembler:  assembler,
		Enhancer:   enhancer,
		Store:      store,
		Locker:     locker,
		Publisher:  publisher,
	}, log)

	router := handler.NewRouter(handler.RouterConfig{
		Debug:          !cfg.IsProduction(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		StaticDir:      staticDir,
		Metrics:        true,
	}, handler.NewSessionHandler(manager, registry, log), log)

	// No write timeout: generation requests block until the provider finishes.
	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	zap.L().Info("Server exiting")
}

// setupStorage returns the reference image store and, for the local backend,
// the directory the router must serve under /static.
func setupStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.ObjectStorage, string, func(), error) {
	s := cfg.Storage
	switch s.Backend {
	case "gcs":
		gcs, err := storage.NewGCSStorage(ctx, s.GCSBucket, s.SignedURLTTL, log)
		if err != nil {
			return nil, "", nil, err
		}
		closeFn := func() {
			if err := gcs.Close(); err != nil {
				zap.L().Error("Error closing GCS client", zap.Error(err))
			}
		}
		zap.L().Info("Using GCS object storage", zap.String("bucket", s.GCSBucket))
		return gcs, "", closeFn, nil
	default:
		local, err := storage.NewLocalStorage(s.LocalDir, s.PublicBaseURL)
		if err != nil {
			return nil, "", nil, err
		}
		zap.L().Info("Using local object storage", zap.String("dir", local.Dir()), zap.String("base_url", s.PublicBaseURL))
		return local, local.Dir(), func() {}, nil
	}
}

// setupLocker uses a Redis lease when REDIS_URL is set so several instances
// can share one sessions directory.
func setupLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (session.Locker, func(), error) {
	if cfg.Redis.URL == "" {
		zap.L().Info("REDIS_URL not set, session leases are kept in process")
		return session.NewLocalLocker(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	err = retry.Do(ctx, retry.RealClock(), connectPolicy, func(error) bool { return true }, func(ctx context.Context, attempt int) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			zap.L().Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	zap.L().Info("Connected to Redis", zap.String("address", opts.Addr))

	closeFn := func() {
		if err := client.Close(); err != nil {
			zap.L().Error("Error closing Redis client", zap.Error(err))
		}
	}
	return session.NewRedisLocker(client, cfg.Redis.LeaseTTL, log), closeFn, nil
}

func setupPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		zap.L().Info("RABBITMQ_URL not set, session events are not published")
		return events.NopPublisher{}, nil
	}

	var pub *events.RabbitMQPublisher
	err := retry.Do(ctx, retry.RealClock(), connectPolicy, func(error) bool { return true }, func(ctx context.Context, attempt int) error {
		var err error
		pub, err = events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			zap.L().Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("Connected to RabbitMQ", zap.String("exchange", cfg.RabbitMQ.Exchange))
	return pub, nil
}
