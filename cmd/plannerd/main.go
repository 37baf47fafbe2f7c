package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/clock"
	"routinekeeper/internal/config"
	"routinekeeper/internal/httpserver"
	"routinekeeper/internal/mqhandler"
	"routinekeeper/internal/notes"
	"routinekeeper/internal/notify"
	"routinekeeper/internal/service"
	"routinekeeper/internal/session"
	"routinekeeper/internal/store"
	"routinekeeper/internal/tracker"
	"routinekeeper/pkg/db"
	"routinekeeper/pkg/logger"
	"routinekeeper/pkg/mq"
	pkgredis "routinekeeper/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting plannerd...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Duration("sweep_interval", cfg.Planner.SweepInterval),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	docStore := store.NewPostgresStore(dbConn, log)
	if err := docStore.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to ensure document schema", zap.Error(err))
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis (reminder and due-event dedup)
	rdb := pkgredis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	dedup := notify.NewRedisDeduper(rdb, cfg.Planner.RemindTTL)

	// Repositories
	routineRepo := store.NewRoutineRepository(docStore, log)
	goalRepo := store.NewGoalRepository(docStore, log)
	sessionRepo := store.NewSessionRepository(docStore, log)

	// Services
	clk := clock.Real{}
	trk := tracker.New(clk, cfg.Planner.AdherenceWindow, log)
	reminders := notify.NewReminderService(publisher, dedup, log)
	notesQ := notes.NewCoalescer(goalRepo, log)
	sessionMgr := session.NewManager(sessionRepo, routineRepo, goalRepo, trk, reminders, notesQ, publisher, clk, log)
	planner := service.NewPlanner(routineRepo, goalRepo, sessionMgr, publisher, dedup,
		clk, time.Weekday(cfg.Planner.ReviewWeekday), log)

	// MQ Consumer: materialize tasks from due routine occurrences
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "planner.routine.due", "routine.due", log)
	if err != nil {
		log.Fatal("Failed to init MQ consumer", zap.Error(err))
	}
	defer consumer.Close()

	dueHandler := mqhandler.NewRoutineDueHandler(goalRepo, publisher, clk, log)
	consumer.SetHandler(dueHandler.Handle)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Failed to start consuming", zap.Error(err))
		}
	}()

	// Planner sweeps
	log.Info("Starting planner sweeps...", zap.Duration("interval", cfg.Planner.SweepInterval))
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go func() {
		ticker := time.NewTicker(cfg.Planner.SweepInterval)
		defer ticker.Stop()

		// Run immediately on startup
		if err := planner.RunSweeps(sweepCtx); err != nil {
			log.Error("Initial sweep failed", zap.Error(err))
		}

		for {
			select {
			case <-sweepCtx.Done():
				log.Info("Planner sweeps stopped")
				return
			case <-ticker.C:
				if err := planner.RunSweeps(sweepCtx); err != nil {
					log.Error("Sweep failed", zap.Error(err))
				}
			}
		}
	}()

	// Weekly session opener - runs hourly, opens at the configured weekday
	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	defer sessionCancel()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-sessionCtx.Done():
				log.Info("Weekly session opener stopped")
				return
			case <-ticker.C:
				now := time.Now()
				if now.Hour() < cfg.Planner.ReviewHour {
					continue
				}
				if err := planner.OpenWeeklySessions(sessionCtx); err != nil {
					log.Error("Weekly session opening failed", zap.Error(err))
				}
			}
		}
	}()

	// HTTP Server (health checks and metrics)
	log.Info("Initializing HTTP server...", zap.String("port", cfg.Server.Port))
	router := httpserver.NewRouter(dbConn, consumer)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("plannerd is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down plannerd gracefully...")

	sweepCancel()
	sessionCancel()
	consumer.Stop()

	// Flush any coalesced notes before the store goes away
	if err := notesQ.FlushAll(context.Background()); err != nil {
		log.Error("Notes flush on shutdown failed", zap.Error(err))
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	publisher.Close()
	dbConn.Close()

	log.Info("plannerd shutdown complete")
}
