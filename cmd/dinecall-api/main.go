// README: Entry point; loads config, wires adapters, store and controller, serves HTTP and runs session cleanup.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinecall/internal/config"
	httptransport "dinecall/internal/http"
	"dinecall/internal/infra"
	"dinecall/internal/logger"
	"dinecall/internal/modules/conversation"
	"dinecall/internal/modules/notify"
	"dinecall/internal/modules/session"
)

const notifyTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()
	if strings.EqualFold(cfg.Log.Format, "json") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		zl.Fatal("redis init", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	extractor, closeExtractor, err := buildExtractor(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("extractor init", zap.Error(err))
	}
	defer closeExtractor()

	searcher, err := buildSearcher(cfg, rdb, zl)
	if err != nil {
		zl.Fatal("searcher init", zap.Error(err))
	}

	backend, err := buildNotifier(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("notifier init", zap.Error(err))
	}
	notifier := notify.NewAsync(backend, notifyTimeout, zl)
	defer notifier.Wait()

	store := session.NewStore(session.Config{
		IdleTimeout:        cfg.Session.IdleTimeout,
		DashboardRetention: cfg.Session.DashboardRetention,
		MaxSessions:        cfg.Session.MaxSessions,
	}, rdb, zl)

	ctrl := conversation.NewController(conversation.Config{
		TopN:            cfg.Conversation.TopN,
		ForcePhrases:    cfg.Conversation.ForcePhrases,
		MorePhrases:     cfg.Conversation.MorePhrases,
		EndPhrases:      cfg.Conversation.EndPhrases,
		SlotOrder:       slotOrder(cfg.Conversation.SlotOrder),
		ExtractTimeout:  cfg.Conversation.ExtractTimeout,
		SearchTimeout:   cfg.Conversation.SearchTimeout,
		PublicURL:       cfg.HTTP.PublicURL,
		WelcomeGreeting: cfg.Conversation.WelcomeGreeting,
	}, store, extractor, searcher, notifier, zl)
	dispatcher := conversation.NewDispatcher(ctrl, zl)

	go store.StartCleanupRoutine(ctx, cfg.Session.CleanupInterval, func(id string) {
		zl.Info("session expired", zap.String("session_id", id))
		dispatcher.Close(context.WithoutCancel(ctx), id)
	})

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Turns:     dispatcher,
		Callers:   ctrl,
		Sessions:  store,
		PublicURL: cfg.HTTP.PublicURL,
		Greeting:  cfg.Conversation.WelcomeGreeting,
		Adapters: map[string]string{
			"extractor": extractor.Name(),
			"searcher":  searcher.Name(),
			"notifier":  cfg.Notify.Backend,
		},
		Log: zl,
	})

	zl.Info("dinecall starting",
		zap.String("extractor", extractor.Name()),
		zap.String("searcher", searcher.Name()),
		zap.Bool("redis", rdb != nil))
	if err := server.Run(ctx); err != nil {
		zl.Error("http server", zap.Error(err))
	}
}
