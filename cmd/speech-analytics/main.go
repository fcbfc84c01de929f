package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	speechanalytics "github.com/snarg/speech-analytics"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/api"
	"github.com/snarg/speech-analytics/internal/config"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/ingest"
	"github.com/snarg/speech-analytics/internal/metrics"
	"github.com/snarg/speech-analytics/internal/mqttclient"
	"github.com/snarg/speech-analytics/internal/storage"
	"github.com/snarg/speech-analytics/internal/transcribe"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (env: HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	flag.StringVar(&overrides.WatchDir, "watch-dir", "", "Directory to watch for transcripts and audio (env: WATCH_DIR)")
	flag.StringVar(&overrides.STTProvider, "stt-provider", "", "Transcription provider: none, assemblyai, whisper (env: STT_PROVIDER)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("speech-analytics", version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("speech-analytics starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := analytics.New()

	// Transcription
	sttLog := log.With().Str("component", "transcribe").Logger()
	provider := newProvider(cfg)
	if cfg.PreprocessAudio && !transcribe.CheckSox() {
		sttLog.Warn().Msg("PREPROCESS_AUDIO is set but sox is not installed, audio will be sent as-is")
		cfg.PreprocessAudio = false
	}
	stt := transcribe.NewService(transcribe.ServiceOptions{
		Provider:        provider,
		Engine:          engine,
		Language:        cfg.STTLanguage,
		PreprocessAudio: cfg.PreprocessAudio,
		Timeout:         cfg.STTTimeout,
		Retry:           transcribe.DefaultRetryPolicy(),
		Log:             sttLog,
	})
	if stt.Configured() {
		sttLog.Info().Str("provider", stt.ProviderName()).Msg("transcription enabled")
	} else {
		sttLog.Info().Msg("no transcription provider configured, audio endpoints disabled")
	}

	// MQTT
	var mqtt *mqttclient.Client
	if cfg.MQTTEnabled() {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			InputTopics: cfg.MQTTInputTopics,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			QoS:         1,
			Log:         mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
	}

	// Event backends
	evLog := log.With().Str("component", "events").Logger()
	bus := events.NewBus(cfg.SSEReplaySize)
	pubs := []events.Publisher{bus}
	var archive storage.Store
	for _, b := range cfg.EventsBackend {
		switch b {
		case config.BackendLog:
			pubs = append(pubs, events.NewLogPublisher(evLog))
		case config.BackendMQTT:
			pubs = append(pubs, events.NewMQTTPublisher(mqtt, cfg.MQTTTopic))
		case config.BackendKafka:
			kp, err := events.NewKafkaPublisher(events.KafkaOptions{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaTopic,
				Log:     evLog,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create kafka publisher")
			}
			pubs = append(pubs, kp)
		case config.BackendArchive:
			archiveLog := log.With().Str("component", "archive").Logger()
			store, services, err := storage.New(cfg.Archive, archiveLog)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to open report archive")
			}
			for _, svc := range services {
				svc.Start()
				defer svc.Stop()
			}
			archiveLog.Info().Str("type", store.Type()).Msg("report archive ready")
			archive = store
			pubs = append(pubs, events.NewArchivePublisher(store, archiveLog))
		}
	}
	publisher := events.NewMulti(evLog, pubs...)
	defer publisher.Close()
	evLog.Info().Strs("backends", publisher.Backends()).Msg("event publishing ready")

	// Ingest
	ingester := ingest.New(ingest.Options{
		Analyzer:  engine,
		Publisher: publisher,
		Log:       log.With().Str("component", "ingest").Logger(),
	})
	if mqtt != nil {
		if err := mqtt.Subscribe(ingester.HandleMessage); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to mqtt input topics")
		}
	}

	live := &liveStatus{}
	if stt.Configured() {
		live.pool = transcribe.NewWorkerPool(transcribe.WorkerPoolOptions{
			Processor:  stt,
			Workers:    cfg.TranscribeWorkers,
			QueueSize:  cfg.TranscribeQueueSize,
			JobTimeout: cfg.STTTimeout,
			OnResult:   ingester.OnTranscribed,
			Log:        sttLog,
		})
		live.pool.Start()
		defer live.pool.Stop()
	}
	if cfg.WatchDir != "" {
		opts := ingest.WatcherOptions{
			Dir:      cfg.WatchDir,
			Ingester: ingester,
			Log:      log.With().Str("component", "watcher").Logger(),
		}
		if live.pool != nil {
			opts.Queue = live.pool
		}
		live.watcher = ingest.NewFileWatcher(opts)
	}

	// Metrics
	if cfg.MetricsEnabled {
		prometheus.MustRegister(metrics.NewCollector(live.queueStats(), live.watcherStats(), bus))
	}

	// HTTP Server
	srvOpts := api.ServerOptions{
		Config:      cfg,
		Analyzer:    engine,
		Transcriber: stt,
		Publisher:   publisher,
		Events:      bus,
		Live:        live,
		Backends:    publisher.Backends(),
		OpenAPISpec: speechanalytics.OpenAPISpec,
		Version:     version,
		StartTime:   startTime,
		Log:         log.With().Str("component", "http").Logger(),
	}
	if mqtt != nil {
		srvOpts.MQTT = mqtt
	}
	if archive != nil {
		srvOpts.Reports = archive
	}
	srv := api.NewServer(srvOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if live.watcher != nil {
		g.Go(func() error { return live.watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")

		// Graceful shutdown with 10s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("service error")
	}

	log.Info().Msg("speech-analytics stopped")
}

func newProvider(cfg *config.Config) transcribe.Provider {
	switch cfg.STTProvider {
	case config.ProviderAssemblyAI:
		return transcribe.NewAssemblyAIClient(cfg.AssemblyAIAPIKey, cfg.AssemblyAISpeechModel)
	case config.ProviderWhisper:
		return transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperAPIKey, cfg.STTTimeout)
	default:
		return nil
	}
}

// liveStatus exposes the optional background components to health and
// metrics. Either field may be nil.
type liveStatus struct {
	pool    *transcribe.WorkerPool
	watcher *ingest.FileWatcher
}

func (l *liveStatus) QueueStatus() *api.QueueStatus {
	if l.pool == nil {
		return nil
	}
	s := l.pool.Stats()
	return &api.QueueStatus{Pending: s.Pending, Completed: s.Completed, Failed: s.Failed}
}

func (l *liveStatus) WatcherStatus() *ingest.WatcherStatus {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Status()
}

func (l *liveStatus) queueStats() metrics.QueueStats {
	if l.pool == nil {
		return nil
	}
	return l.pool
}

func (l *liveStatus) watcherStats() metrics.WatcherStats {
	if l.watcher == nil {
		return nil
	}
	return l.watcher
}
