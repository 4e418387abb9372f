package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/config"
	"github.com/snappy-loop/poster/internal/handlers"
	"github.com/snappy-loop/poster/internal/llm"
	"github.com/snappy-loop/poster/internal/models"
	"github.com/snappy-loop/poster/internal/services"
	"github.com/snappy-loop/poster/internal/validation"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadDotEnv()
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting poster assistant")

	client := llm.NewClient(
		cfg.GeminiAPIKey,
		cfg.GeminiModelText,
		cfg.GeminiModelImage,
		cfg.GeminiTextBackend,
		cfg.GeminiAPIEndpoint,
	)
	if !client.Configured() {
		log.Warn().Msg("GEMINI_API_KEY not set; every generation will fail until it is configured")
	}

	defaultGrade, err := models.ParseGradeLevel(cfg.DefaultGrade)
	if err != nil {
		log.Warn().Err(err).Str("default_grade", cfg.DefaultGrade).Msg("Invalid DEFAULT_GRADE, using 初中")
		defaultGrade = models.DefaultGrade
	}
	validator := validation.New()
	loc := cfg.Location()
	sessions := services.NewSessionStore(func() *services.PosterController {
		return services.NewPosterController(client, cfg.DefaultTopic, defaultGrade,
			services.WithLocation(loc),
			services.WithValidator(validator),
		)
	}, cfg.SessionTTL)

	h := handlers.NewHandler(sessions, client.Configured(), cfg.CookieSecure, cfg.SessionTTL)

	r := h.Router()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// POST /v1/generate?wait=true holds the response until both Gemini calls settle
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("model_text", cfg.GeminiModelText).
			Str("model_image", cfg.GeminiModelImage).
			Str("text_backend", cfg.GeminiTextBackend).
			Msg("Poster assistant listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Poster assistant exited")
}
