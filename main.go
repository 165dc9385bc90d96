package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func newLogger(debug bool) *zap.Logger {
	if debug {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		sugar.Fatalw("could not connect to mongodb", "error", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		sugar.Fatalw("could not reach mongodb", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())
	sugar.Infow("mongodb connected")

	store := NewMongoStore(mongoClient.Database(cfg.MongoDB))

	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		Logger:         logger.Named("telegram"),
	})

	// The client only serves requests while Run is active, so it runs in the
	// background for the whole process lifetime. The first run prompts for a
	// login code on the terminal and persists the session file.
	ready := make(chan struct{})
	runErr := make(chan error, 1)
	go func() {
		runErr <- tgClient.Run(ctx, func(ctx context.Context) error {
			flow := auth.NewFlow(termAuth{phone: cfg.Phone}, auth.SendCodeOptions{})
			if err := tgClient.Auth().IfNecessary(ctx, flow); err != nil {
				return fmt.Errorf("telegram login: %w", err)
			}
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ready:
		sugar.Infow("telegram logged in")
	case err := <-runErr:
		sugar.Fatalw("telegram startup failed", "error", err)
	}

	reader := NewTelegramReader(tgClient, sugar)
	analyzer := NewOpenRouterClient(cfg.OpenRouterURL, cfg.OpenRouterKey, sugar)
	handler := NewHandler(store, reader, analyzer, sugar)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware.Handler(loggingMiddleware(sugar)(handler.routes())),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sugar.Infow("server is listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("could not listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	sugar.Infow("server is shutting down")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		sugar.Fatalw("server forced to shutdown", "error", err)
	}
	cancel()

	sugar.Infow("server stopped")
}
