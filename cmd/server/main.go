package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maskerade/privchat/internal/ai"
	"github.com/maskerade/privchat/internal/chat"
	"github.com/maskerade/privchat/internal/config"
	"github.com/maskerade/privchat/internal/db"
	"github.com/maskerade/privchat/internal/gateway"
	"github.com/maskerade/privchat/internal/history"
	"github.com/maskerade/privchat/internal/httpapi"
	"github.com/maskerade/privchat/internal/httpapi/handlers"
	"github.com/maskerade/privchat/internal/pdfext"
	"github.com/maskerade/privchat/internal/store/rabbitmq"
	"github.com/maskerade/privchat/internal/store/redisstore"
	"github.com/maskerade/privchat/internal/tokens"
	"github.com/maskerade/privchat/internal/tuning"
)

func main() {
	cfg := config.Load()

	// history store is optional; conversation endpoints work without it
	var hist *history.Repo
	if cfg.DBDSN != "" {
		gdb, err := db.Connect(cfg.DBDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		if err := gdb.AutoMigrate(&history.User{}, &history.Conversation{}, &history.Message{}); err != nil {
			log.Fatalf("automigrate: %v", err)
		}
		hist = history.NewRepo(gdb)
	}

	gw := gateway.NewClient(cfg.MaskURL, cfg.UnmaskURL, cfg.MaskToken)

	counter, err := tokens.NewTiktokenCounter(cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("tokenizer: %v", err)
	}
	framer := chat.NewFramer(gw, counter, cfg.OpenAIPDFSystemMsg, cfg.MaxPromptTokens)

	provider := ai.NewOpenAIProvider(
		cfg.OpenAIAPIKey,
		cfg.OpenAIModel,
		cfg.OpenAITemperature,
		cfg.OpenAITopP,
		cfg.OpenAIMaxTokens,
		cfg.OpenAIStopSequence,
	)
	chatSvc := chat.NewService(provider, gw, framer)

	jobState := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := jobState.Ping(pingCtx); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	pingCancel()

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer publisher.Close()

	progress := tuning.NewProgress(
		jobState,
		tuning.NewOpenAIClient(cfg.OpenAIAPIKey),
		publisher,
		cfg.OpenAIAPIKey,
		cfg.OpenAIModel,
		cfg.TrainingFile,
		cfg.BaseModel,
	)

	h := handlers.NewHandler(cfg, chatSvc, hist, gw, pdfext.New(), progress)
	router := httpapi.NewRouter(h)

	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
