package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv" // Loads .env files in development
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/config"
    "github.com/iliyamo/turnos/internal/database"
    "github.com/iliyamo/turnos/internal/dispatch"
    "github.com/iliyamo/turnos/internal/handler"
    "github.com/iliyamo/turnos/internal/notify"
    "github.com/iliyamo/turnos/internal/queue"
    "github.com/iliyamo/turnos/internal/repository"
    "github.com/iliyamo/turnos/internal/router"
)

func main() {
    // .env is optional; in containers everything comes from the
    // environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis backs the push channel and the rate limiter; both degrade
    // gracefully when it is unreachable.
    rdb := config.NewRedisClient()

    bus := notify.NewBus(cfg.RabbitURL, cfg.RabbitExchange)
    defer bus.Close()
    push := notify.NewPush(rdb, cfg.PushChannel)
    fanout := notify.NewFanout(bus, push)

    tickets := repository.NewTicketRepo(db)
    events := repository.NewEventRepo(db)
    windows := repository.NewWindowRepo(db)
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)

    engine := dispatch.New(tickets, fanout)
    reader := queue.NewReader(bus, engine)
    telegram := notify.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(users, tokens, &cfg), cfg.JWTSecret)
    router.RegisterTickets(e, handler.NewTicketHandler(engine, tickets, events, reader), cfg.JWTSecret, rdb, cfg.CreatePerMinute)
    router.RegisterWindows(e, handler.NewWindowHandler(windows), cfg.JWTSecret)
    router.RegisterNotifications(e, handler.NewNotificationHandler(telegram), cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
