package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/robfig/cron/v3"

	"rosary-digest/internal/audio"
	"rosary-digest/internal/cleanup"
	"rosary-digest/internal/config"
	"rosary-digest/internal/feed"
	"rosary-digest/internal/runner"
	"rosary-digest/internal/segment"
	"rosary-digest/internal/store"
	"rosary-digest/internal/summarizer"
	"rosary-digest/internal/telegram"
	"rosary-digest/internal/transcriber"
)

var opts struct {
	Conf string `short:"c" long:"conf" env:"ROSARY_CONF" default:"config.yml" description:"config file (yml)"`
	Once bool   `long:"once" description:"run the pipeline once and exit"`
	Dbg  bool   `long:"dbg" env:"DEBUG" description:"show debug info"`
}

func main() {
	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		p.WriteHelp(os.Stderr)
		os.Exit(2)
	}

	setupLog(opts.Dbg)

	cfg, err := config.Load(opts.Conf)
	if err != nil {
		log.Fatalf("[ERROR] can't load config %s, %v", opts.Conf, err)
	}

	db, err := store.NewBoltDB(cfg.Storage.StateFile)
	if err != nil {
		log.Fatalf("[ERROR] can't open state store, %v", err)
	}
	defer db.Close()

	r := buildRunner(cfg, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Once {
		log.Printf("[INFO] running once")
		if err := r.Run(ctx); err != nil {
			log.Fatalf("[ERROR] pipeline failed, %v", err)
		}
		return
	}

	if cfg.RunOnStart {
		if err := r.Run(ctx); err != nil {
			log.Printf("[WARN] initial run failed, %v", err)
		}
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Printf("[INFO] cron triggered")
		if err := r.Run(ctx); err != nil {
			log.Printf("[WARN] scheduled run failed, %v", err)
		}
	})
	if err != nil {
		log.Fatalf("[ERROR] bad cron schedule %q, %v", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("[INFO] scheduled with cron expression %q", cfg.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[INFO] received %v, shutting down", sig)

	cancel()
	<-c.Stop().Done()
}

// buildRunner assembles the pipeline from config: both fallback chains,
// delivery, state, and cleanup.
func buildRunner(cfg *config.Config, db *store.BoltDB) *runner.Runner {
	files := &store.Files{Dir: cfg.Storage.DownloadDir}

	transcribeChain := transcriber.NewChain(
		transcriber.NewWhisperAPI(cfg.Transcribe.OpenAIAPIKey),
		transcriber.NewLocalWhisper(cfg.Transcribe.WhisperBinary, cfg.Transcribe.WhisperModelPath, cfg.Transcribe.Language),
		transcriber.NewLocalWhisperRaw(cfg.Transcribe.WhisperBinary, cfg.Transcribe.WhisperModelPath, cfg.Transcribe.Language),
		transcriber.NewGoogleSpeech(cfg.Transcribe.GoogleAPIKey, cfg.Transcribe.Language),
	)

	extractive := summarizer.NewExtractive()
	if len(cfg.Summarize.Keywords) > 0 {
		extractive.Keywords = cfg.Summarize.Keywords
	}
	if len(cfg.Summarize.IntroPhrases) > 0 {
		extractive.IntroPhrases = cfg.Summarize.IntroPhrases
	}
	extractive.LightMode = cfg.Summarize.LightMode

	summarizeChain := summarizer.NewChain(
		summarizer.NewOpenAI(cfg.Summarize.OpenAIAPIKey, cfg.Summarize.Models),
		summarizer.NewWebChat(cfg.Summarize.WebChatURL,
			time.Duration(cfg.Summarize.WebChatWait)*time.Second, *cfg.Summarize.Headless),
		extractive,
	)

	cleaner := cleanup.New(files, cfg.Storage.ArchiveDir, cfg.Cleanup.Enabled)
	if cfg.S3.Enabled {
		archiver, err := cleanup.NewS3Archiver(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey,
			cfg.S3.Bucket, cfg.S3.Location, cfg.S3.Prefix, *cfg.S3.Secure)
		if err != nil {
			log.Fatalf("[ERROR] can't connect to s3, %v", err)
		}
		cleaner = cleaner.WithArchiver(archiver)
	}

	markers := segment.DefaultMarkers()
	if cfg.Segment.PrimaryMarker != "" {
		markers.Primary = cfg.Segment.PrimaryMarker
	}
	if len(cfg.Segment.BackupMarkers) > 0 {
		markers.Backups = cfg.Segment.BackupMarkers
	}

	return runner.New("rosary",
		feed.New(cfg.Feed.URL, cfg.Feed.SkipIntro),
		audio.NewDownloader(cfg.Storage.DownloadDir),
		transcribeChain,
		summarizeChain,
		telegram.NewSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		db, files, cleaner, markers,
	).WithRetention(
		time.Duration(cfg.Cleanup.TranscriptAgeDays)*24*time.Hour,
		time.Duration(cfg.Cleanup.DownloadAgeDays)*24*time.Hour,
	)
}

func setupLog(dbg bool) {
	if dbg {
		log.Setup(log.Debug, log.Msec, log.LevelBraces, log.CallerFile, log.CallerFunc)
		return
	}
	log.Setup(log.Msec, log.LevelBraces)
}
