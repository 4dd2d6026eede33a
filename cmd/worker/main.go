package main // Background worker entry point

import (
    "log"

    "github.com/joho/godotenv"

    "github.com/iliyamo/turnos/internal/config"
    "github.com/iliyamo/turnos/internal/database"
    "github.com/iliyamo/turnos/internal/dispatch"
    "github.com/iliyamo/turnos/internal/notify"
    "github.com/iliyamo/turnos/internal/queue"
    "github.com/iliyamo/turnos/internal/repository"
)

// The worker consumes window assignment requests and customer
// notification events from the broker.  It shares the dispatch engine
// with the API server but runs as a separate process, so a slow
// Telegram call never holds up an HTTP request.
func main() {
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient()

    bus := notify.NewBus(cfg.RabbitURL, cfg.RabbitExchange)
    defer bus.Close()
    fanout := notify.NewFanout(bus, notify.NewPush(rdb, cfg.PushChannel))

    engine := dispatch.New(repository.NewTicketRepo(db), fanout)

    w := &queue.Worker{
        URL:      cfg.RabbitURL,
        Exchange: cfg.RabbitExchange,
        Engine:   engine,
        Telegram: notify.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID),
    }
    log.Printf("worker starting (env=%s)", cfg.Env)
    if err := w.Run(); err != nil {
        log.Fatal(err)
    }
}
