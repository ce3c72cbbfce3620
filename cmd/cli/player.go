package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/bitswitch/api"
	"github.com/yourusername/bitswitch/api/handlers"
	"github.com/yourusername/bitswitch/internal/acquire"
	"github.com/yourusername/bitswitch/internal/app"
	"github.com/yourusername/bitswitch/internal/decode"
	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/fetch"
	"github.com/yourusername/bitswitch/internal/infrastructure"
	"github.com/yourusername/bitswitch/internal/metrics"
	"github.com/yourusername/bitswitch/internal/render"
)

// player wires the acquisition pipeline, renderer and session together
type player struct {
	config  *domain.Config
	log     *zap.Logger
	client  *http.Client
	decoder *decode.Context
	engine  *render.Engine
	repo    *infrastructure.SQLiteRunRepository
	session *app.Session
	control *http.Server
}

func newPlayer(config *domain.Config, log *zap.Logger) *player {
	client := &http.Client{Timeout: config.Library.RequestTimeout}
	fetcher := fetch.NewFetcher(client, fetch.Config{SizeHeader: config.Library.SizeHeader}, log)
	decoder := decode.NewContext(decode.Options{
		SampleRate:   config.Player.SampleRate,
		Concurrency:  config.Player.DecodeConcurrency,
		FFmpegBinary: config.Player.FFmpegBinary,
	}, log)
	pipeline := acquire.NewPipeline(fetcher, decoder, log)

	engine := render.NewEngine(render.NewPortAudioDevice(), render.Config{
		SampleRate:      config.Player.SampleRate,
		FramesPerBuffer: config.Player.FramesPerBuffer,
		LoopStart:       config.Player.LoopStart,
	}, log)

	p := &player{
		config:  config,
		log:     log,
		client:  client,
		decoder: decoder,
		engine:  engine,
	}

	// History is best effort; playback works without it
	var history domain.RunRepository
	if config.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(config.History.DatabasePath), 0755); err != nil {
			log.Warn("Failed to create history directory", zap.Error(err))
		} else if repo, err := infrastructure.NewSQLiteRunRepository(config.History.DatabasePath); err != nil {
			log.Warn("Run history unavailable", zap.Error(err))
		} else {
			if n, err := repo.AbandonUnfinished(); err == nil && n > 0 {
				log.Info("Marked stale runs abandoned", zap.Int64("count", n))
			}
			p.repo = repo
			history = repo
		}
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	p.session = app.NewSession(config, pipeline, engine, history, notifier, log)
	p.session.AttachDisplay(metrics.Gauge{})
	return p
}

// folders lists the library folders
func (p *player) folders(ctx context.Context) ([]string, error) {
	return fetch.ListFolders(ctx, p.client, p.config.Library.BaseURL)
}

// warnings returns advisory messages about the environment
func (p *player) warnings() []string {
	var out []string
	container := p.config.Library.Container
	if p.decoder.NeedsFFmpeg(container) && !p.decoder.FFmpegAvailable() {
		out = append(out, fmt.Sprintf("%s decoding needs %s, which was not found in PATH",
			container, p.config.Player.FFmpegBinary))
	}
	if p.config.History.Enabled && p.repo == nil {
		out = append(out, "run history is unavailable")
	}
	return out
}

// ready reports whether the session can accept playback commands
func (p *player) ready() error {
	switch st := p.session.Status().State; st {
	case app.StateArmed, app.StatePlaying, app.StateSuspended:
		return nil
	default:
		return fmt.Errorf("session %s", st)
	}
}

// startControl serves the HTTP control surface when enabled
func (p *player) startControl(ctx context.Context) {
	if !p.config.Player.ControlEnabled {
		return
	}

	metrics.Register()
	hub := handlers.NewProgressHub(p.log)
	p.session.AttachDisplay(hub)

	router := api.SetupControlRouter(ctx, api.ControlDeps{
		Session: p.session,
		Folders: p.folders,
		Hub:     hub,
		Ready:   p.ready,
	}, p.log)

	addr := fmt.Sprintf("%s:%d", p.config.Player.ControlHost, p.config.Player.ControlPort)
	p.control = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		p.log.Info("Control server listening", zap.String("addr", addr))
		if err := p.control.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error("Control server failed", zap.Error(err))
		}
	}()
}

// Close stops playback and releases the device and history
func (p *player) Close() {
	p.session.Close()

	if p.control != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.control.Shutdown(ctx); err != nil {
			p.log.Error("Control server forced to shutdown", zap.Error(err))
		}
	}
	if err := p.engine.Close(); err != nil {
		p.log.Warn("Failed to close audio output", zap.Error(err))
	}
	if p.repo != nil {
		p.repo.Close()
	}
}
