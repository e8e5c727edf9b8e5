package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"agendalo/internal/api"
	"agendalo/internal/clock"
	"agendalo/internal/config"
	"agendalo/internal/repository"
	"agendalo/internal/service"
	"agendalo/migrations"
)

func main() {
	godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	if cfg.Debug {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	if err := database.Ping(); err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrations.Run(ctx, database); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("applying migrations")
	}
	cancel()

	clk := clock.NewSystem()
	tx := repository.NewTxRunner(database)

	catalogRepo := repository.NewCatalogRepository(database)
	apptRepo := repository.NewAppointmentRepository(database)
	blockRepo := repository.NewBlockedSlotRepository(database)
	clientRepo := repository.NewClientRepository(database)
	waitlistRepo := repository.NewWaitlistRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	staffRepo := repository.NewStaffRepository(database)

	notifier := service.NewNotifyService(notificationRepo, staffRepo, clk, log)
	waitlistSvc := service.NewWaitlistService(tx, waitlistRepo, apptRepo, catalogRepo, clientRepo, notifier, clk, cfg.Engine.OfferTTL, log)
	bookingSvc := service.NewBookingService(tx, catalogRepo, apptRepo, blockRepo, clientRepo, notifier, waitlistSvc, clk, log)
	availabilitySvc := service.NewAvailabilityService(catalogRepo, apptRepo, blockRepo, clk, cfg.Engine, log)
	blockSvc := service.NewBlockService(blockRepo)
	authSvc := service.NewAuthService(staffRepo, cfg.JWTSecret, clk)
	senderSvc := service.NewSenderService(tx, notificationRepo, cfg, log)
	jobs := service.NewJobService(waitlistSvc, senderSvc, log)

	router := api.NewRouter(
		api.NewBookingHandler(bookingSvc, availabilitySvc, catalogRepo),
		api.NewWaitlistHandler(waitlistSvc),
		api.NewStaffHandler(blockSvc, authSvc),
		cfg.JWTSecret,
		log,
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("* * * * *", jobs.ExpireStaleOffers); err != nil {
		log.Fatal().Err(err).Msg("scheduling offer expiry sweep")
	}
	if _, err := scheduler.AddFunc("* * * * *", jobs.DispatchNotifications); err != nil {
		log.Fatal().Err(err).Msg("scheduling notification dispatch")
	}
	scheduler.Start()
	defer scheduler.Stop()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, cors(handlers.RecoveryHandler()(router))); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
