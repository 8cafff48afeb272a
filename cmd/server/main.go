package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jersilb1400/icloud-email-service/internal/config"
	"github.com/jersilb1400/icloud-email-service/internal/delivery"
	"github.com/jersilb1400/icloud-email-service/internal/journal"
	"github.com/jersilb1400/icloud-email-service/internal/mailbox"
	"github.com/jersilb1400/icloud-email-service/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("loading configuration")
	}

	log := newLogger(cfg.Log)

	mailService := mailbox.NewService(mailbox.ServerConfig{
		Host:           cfg.IMAP.Host,
		Port:           cfg.IMAP.Port,
		ConnectTimeout: time.Duration(cfg.IMAP.ConnectTimeoutSec) * time.Second,
	}, log)

	sender := delivery.NewSender(delivery.Config{
		SMTPHost:        cfg.SMTP.Host,
		SMTPPort:        cfg.SMTP.Port,
		SMTPImplicitTLS: cfg.SMTP.ImplicitTLS,
		MailgunAPIKey:   cfg.Mailgun.APIKey,
		MailgunDomain:   cfg.Mailgun.Domain,
		MailgunBaseURL:  cfg.Mailgun.BaseURL,
		DefaultFrom:     cfg.Mailgun.From,
	}, log)

	transport := "smtp"
	if cfg.MailgunEnabled() {
		transport = "mailgun"
	}
	log.Info().
		Str("imap_host", cfg.IMAP.Host).
		Str("delivery_transport", transport).
		Msg("configured")

	var jrnl *journal.Journal
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("opening delivery journal")
		}
		defer jrnl.Close()
		log.Info().Str("path", cfg.Journal.Path).Msg("delivery journal enabled")
	}

	srv := server.New(mailService, sender, jrnl, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// newLogger builds the process logger from configuration.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
