package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-keeper/internal/bot"
	"todo-keeper/internal/config"
	"todo-keeper/internal/repository"
	"todo-keeper/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	kv := repository.NewKV(db)
	listRepo := repository.NewTaskListRepository(kv)
	userRepo := repository.NewUserRepository(kv)
	settingsRepo := repository.NewSettingsRepository(kv)

	accounts := service.NewAccountService(userRepo, listRepo)
	projector := service.NewProjector(cfg.Locale)
	reports := service.NewReportService(listRepo, userRepo, projector)

	telegramBot, err := bot.New(cfg.TelegramToken, accounts, listRepo, settingsRepo, reports, projector)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	report := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("report: %v", err)
		}
	}
	switch {
	case cfg.ReportTime != "":
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, report); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	case cfg.ReportInterval > 0:
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, report); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("Todo keeper bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
