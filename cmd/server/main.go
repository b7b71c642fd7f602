package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sevasangh/portal-api/internal/auth"
	"github.com/sevasangh/portal-api/internal/config"
	"github.com/sevasangh/portal-api/internal/database"
	"github.com/sevasangh/portal-api/internal/donation"
	"github.com/sevasangh/portal-api/internal/handlers"
	"github.com/sevasangh/portal-api/internal/logistics"
	"github.com/sevasangh/portal-api/internal/notifier"
	"github.com/sevasangh/portal-api/internal/payment"
	"github.com/sevasangh/portal-api/internal/pledge"
	"github.com/sevasangh/portal-api/internal/registration"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Notification sink
	var sink notifier.Notifier
	discordNotifier, err := notifier.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordStaffChannelID, log)
	if err != nil {
		log.Warn().Err(err).Msg("discord notifier not initialized, notifications disabled")
		sink = notifier.Noop{}
	} else {
		sink = discordNotifier
	}

	// Core services
	authHandler := auth.NewAuthHandler(cfg, db)
	regs := registration.NewService(db, sink, log)
	donations := donation.NewService(db, sink, log)
	pledges := pledge.NewService(db, log)
	trips := logistics.NewService(db, sink, log)
	gateway := payment.NewGateway(payment.Config{
		KeyID:        cfg.GatewayKeyID,
		Secret:       cfg.GatewaySecret,
		MerchantName: cfg.MerchantName,
		ThemeColor:   cfg.GatewayThemeColor,
	}, regs, donations, sink, log)

	// Pledge sweep
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pledges.Run(ctx, time.Duration(cfg.SweepIntervalMinutes)*time.Minute)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, handlers.Handlers{
		Activities:    handlers.NewActivityHandler(db),
		Registrations: handlers.NewRegistrationHandler(db, regs, gateway),
		Payments:      handlers.NewPaymentHandler(gateway),
		Donations:     handlers.NewDonationHandler(db, donations, gateway),
		Pledges:       handlers.NewPledgeHandler(db, pledges),
		Logistics:     handlers.NewLogisticsHandler(trips),
		Exports:       handlers.NewExportHandler(db),
	})

	// Start Server
	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
