package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketBooker/internal/config"
	"ticketBooker/internal/http-server/handlers/booking/createBooking"
	"ticketBooker/internal/http-server/handlers/event/getEvent"
	"ticketBooker/internal/http-server/middleware/mwlogger"
	"ticketBooker/internal/lib/logger/handlers/slogpretty"
	"ticketBooker/internal/lib/logger/sl"
	"ticketBooker/internal/service/booking"
	"ticketBooker/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	seed := flag.Bool("seed", false, "insert demo events on startup")
	flag.Parse()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting ticket booker", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.InitDB(&cfg.Database)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if *seed {
		if err = seedEvents(storage, log); err != nil {
			log.Error("failed to seed events", sl.Err(err))
			os.Exit(1)
		}
	}

	bookingService := booking.New(storage)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/bookings", createBooking.New(log, bookingService))
	router.Get("/events/{id}", getEvent.New(log, storage))

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	go func() {
		if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop <- syscall.SIGTERM
		}
	}()

	sign := <-stop

	log.Info("application stopping", slog.String("signal", sign.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	log.Info("application stopped")

	if err = storage.Close(); err != nil {
		log.Error("failed to close postgres connection", sl.Err(err))
	}

	log.Info("postgres connection closed")
}

func seedEvents(storage *postgres.Storage, log *slog.Logger) error {
	ctx := context.Background()

	events := []struct {
		name    string
		tickets int
		price   decimal.Decimal
	}{
		{"Tech Conference 2025", 100, decimal.RequireFromString("75.00")},
		{"Music Festival", 50, decimal.RequireFromString("120.00")},
	}

	for _, e := range events {
		id, err := storage.CreateEvent(ctx, e.name, e.tickets, e.price)
		if err != nil {
			return err
		}
		log.Info("seeded event", slog.Int("id", id), slog.String("name", e.name))
	}

	return nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
