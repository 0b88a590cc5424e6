package main

import (
	"context"

	availabilityhandler "smstudio/internal/availability/handler"
	availabilityrepo "smstudio/internal/availability/repository"
	availabilityservice "smstudio/internal/availability/service"
	availabilityvalidator "smstudio/internal/availability/validator"
	bookinghandler "smstudio/internal/bookings/handler"
	bookingrepo "smstudio/internal/bookings/repository"
	bookingservice "smstudio/internal/bookings/service"
	bookingvalidator "smstudio/internal/bookings/validator"
	directoryrepo "smstudio/internal/directory/repository"
	"smstudio/pkg/app"
	"smstudio/pkg/config"
	"smstudio/pkg/kafka"
	kafka_config "smstudio/pkg/kafka/config"
	kafka_middleware "smstudio/pkg/kafka/middleware"
	"smstudio/pkg/notify"
)

const ServiceName = "booking-api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting booking API")

	dispatcher, closeSink := initNotifications(cfg)
	dispatcher.Start()

	availabilityHandler, bookingHandler := initServices(cfg, dispatcher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(availabilityHandler, bookingHandler)
	serverApp.OnShutdown(dispatcher.Stop)
	serverApp.OnShutdown(func(context.Context) error { return closeSink() })
	serverApp.OnShutdown(func(context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, notifier notify.Emitter) (*availabilityhandler.AvailabilityHandler, *bookinghandler.BookingHandler) {
	availabilityRepo := availabilityrepo.NewMongoAvailabilityRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	collaboratorRepo := bookingrepo.NewCollaboratorRepository(cfg)
	profileRepo := directoryrepo.NewMongoProfileRepository(cfg)
	offeringRepo := directoryrepo.NewMongoOfferingRepository(cfg)

	calendar := availabilityservice.NewCalendarService(
		availabilityRepo,
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		cfg,
	)
	resolver := availabilityservice.NewResolverService(availabilityRepo, bookingRepo, cfg)

	bookings := bookingservice.NewBookingService(
		bookingRepo,
		collaboratorRepo,
		resolver,
		profileRepo,
		offeringRepo,
		notifier,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return availabilityhandler.NewAvailabilityHandler(calendar, resolver, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, cfg.Log)
}

// initNotifications publishes to Kafka when enabled and falls back to logging
// otherwise, so a missing broker never blocks booking writes.
func initNotifications(cfg *config.Config) (*notify.Dispatcher, func() error) {
	noop := func() error { return nil }
	if !cfg.NotificationsEnabled {
		cfg.Log.Info("Notifications disabled, logging only")
		return notify.NewDispatcher(notify.NewLogSink(cfg.Log), cfg.NotifyQueueSize, cfg.Log), noop
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.NotificationsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	closeProducer := func() error {
		kafka_middleware.GetMetrics().LogMetrics(cfg.Log)
		return producer.Close()
	}
	return notify.NewDispatcher(notify.NewKafkaSink(producer, ServiceName), cfg.NotifyQueueSize, cfg.Log), closeProducer
}
