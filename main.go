package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"assistantbot/config"
	"assistantbot/feed"
	"assistantbot/reminder"
	"assistantbot/store"
	"assistantbot/tgbot"
	"assistantbot/weather"
)

// getLogger creates a logger in global namespace
func getLogger() (*zap.SugaredLogger, func() error) {
	logger, _ := zap.NewDevelopment(zap.Fields(zap.String("ns", "AssistantBot")))

	log := logger.Sugar()
	return log, logger.Sync
}

// Assistant bot entry point
func main() {
	logger, syncLogs := getLogger()
	defer syncLogs()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using the environment as is")
	}

	cfgFile, ok := os.LookupEnv("CONFIG_FILE")
	if !ok {
		logger.Fatalf("Configuration file name isn't set")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Fatalw("couldn't load configuration", "err", err)
	}

	api, err := tg.NewBotAPI(cfg.TgToken)
	if err != nil {
		logger.Fatalw("failed to initialize Telegram Bot", "err", err)
	}
	api.Debug = false

	logger.Infof("authorized on account %q", api.Self.UserName)

	notes := store.NewList()
	tasks := store.NewList()
	feeds := store.NewFeeds(cfg.DefaultFeed)

	b := tgbot.New(api, notes, tasks, feeds,
		weather.NewClient(cfg.WeatherURL), feed.NewClient(), logger)

	b.Reminders = reminder.NewManager(b.SendReminder, logger)
	b.Reminders.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	uCfg := tg.NewUpdate(0)
	uCfg.Timeout = 60
	updates := api.GetUpdatesChan(uCfg)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case u := <-updates:
			if u.Message == nil {
				continue
			}
			if u.Message.IsCommand() {
				go b.HandleCommand(ctx, u.Message)
			} else {
				go b.HandleMessage(ctx, u.Message)
			}
		}
	}
}
