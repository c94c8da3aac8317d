package main

import (
	"gatherly/internal/access"
	dashboardhandler "gatherly/internal/dashboard/handler"
	dashboardrepo "gatherly/internal/dashboard/repository"
	dashboardservice "gatherly/internal/dashboard/service"
	eventshandler "gatherly/internal/events/handler"
	eventsrepo "gatherly/internal/events/repository"
	eventsservice "gatherly/internal/events/service"
	guestshandler "gatherly/internal/guests/handler"
	guestsrepo "gatherly/internal/guests/repository"
	guestsservice "gatherly/internal/guests/service"
	invitationshandler "gatherly/internal/invitations/handler"
	invitationsrepo "gatherly/internal/invitations/repository"
	invitationsservice "gatherly/internal/invitations/service"
	notificationshandler "gatherly/internal/notifications/handler"
	notificationsrepo "gatherly/internal/notifications/repository"
	notificationsservice "gatherly/internal/notifications/service"
	orghandler "gatherly/internal/organizations/handler"
	orgrepo "gatherly/internal/organizations/repository"
	orgservice "gatherly/internal/organizations/service"
	promohandler "gatherly/internal/promocodes/handler"
	promorepo "gatherly/internal/promocodes/repository"
	promoservice "gatherly/internal/promocodes/service"
	usershandler "gatherly/internal/users/handler"
	usersrepo "gatherly/internal/users/repository"
	usersservice "gatherly/internal/users/service"
	"gatherly/pkg/activity"
	"gatherly/pkg/app"
	"gatherly/pkg/auth"
	"gatherly/pkg/config"
	"gatherly/pkg/contracts"
	"gatherly/pkg/kafka"
	kafka_config "gatherly/pkg/kafka/config"
	kafka_middleware "gatherly/pkg/kafka/middleware"
	"gatherly/pkg/sealer"
)

const ServiceName = "gatherly-api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Gatherly API")
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionSecure, cfg.Log)
	serverApp := app.NewApplication(cfg, sessions)

	publisher := initPublisher(cfg, serverApp)
	serverApp.SetApp(initHandlers(cfg, sessions, publisher)...)
	serverApp.Run()
}

func initPublisher(cfg *config.Config, serverApp *app.Application) activity.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, activity will not be published")
		return activity.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.Activity.Topic, kafkaCfg.Activity.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create activity producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(kafka_middleware.NewMetrics()))
	}
	serverApp.AddCloser(producer)

	cfg.Log.Info("Activity publisher initialized", "topic", producer.Topic())
	return activity.NewKafkaPublisher(producer)
}

func initHandlers(cfg *config.Config, sessions *auth.Sessions, publisher activity.Publisher) []contracts.Handler {
	userRepo := usersrepo.NewMongoUserRepository(cfg)
	orgRepo := orgrepo.NewMongoOrganizationRepository(cfg)
	roleRepo := orgrepo.NewMongoRoleRepository(cfg)
	invitationRepo := invitationsrepo.NewMongoInvitationRepository(cfg)
	eventRepo := eventsrepo.NewMongoEventRepository(cfg)
	promoRepo := promorepo.NewMongoPromoCodeRepository(cfg)
	guestRepo := guestsrepo.NewMongoGuestRepository(cfg)
	lockRepo := guestsrepo.NewMongoRegistrationLockRepository(cfg)
	notificationRepo := notificationsrepo.NewMongoNotificationRepository(cfg)
	statsRepo := dashboardrepo.NewMongoStatsRepository(cfg)

	inviteSealer, err := sealer.New(cfg.InviteTokenKey)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize invitation sealer", "error", err)
	}

	authz := access.NewAuthorizer(orgRepo, roleRepo, eventRepo, cfg.Log)

	userService := usersservice.NewUserService(userRepo, cfg)
	orgService := orgservice.NewOrganizationService(orgRepo, roleRepo, authz, cfg, invitationRepo, eventRepo)
	roleService := orgservice.NewRoleService(roleRepo, orgRepo, authz, cfg)
	memberService := orgservice.NewMemberService(orgRepo, roleRepo, userRepo, authz, publisher, cfg)
	invitationService := invitationsservice.NewInvitationService(
		invitationRepo, orgRepo, roleRepo, userRepo, authz, inviteSealer, publisher, cfg,
	)
	eventService := eventsservice.NewEventService(eventRepo, authz, publisher, cfg, promoRepo, guestRepo)
	promoService := promoservice.NewPromoCodeService(promoRepo, eventRepo, authz, publisher, cfg)
	guestService := guestsservice.NewGuestService(guestRepo, lockRepo, eventRepo, authz, publisher, cfg)
	notificationService := notificationsservice.NewNotificationService(notificationRepo, cfg)
	dashboardService := dashboardservice.NewDashboardService(statsRepo, authz, cfg)

	cfg.Log.Info("Gatherly services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		usershandler.NewAuthHandler(userService, sessions, cfg.Log),
		orghandler.NewOrganizationHandler(orgService, roleService, memberService, cfg.Log),
		invitationshandler.NewInvitationHandler(invitationService, cfg.Log),
		eventshandler.NewEventHandler(eventService, cfg.Log),
		promohandler.NewPromoCodeHandler(promoService, cfg.Log),
		guestshandler.NewGuestHandler(guestService, cfg.WebhookSecret, cfg.Log),
		notificationshandler.NewNotificationHandler(notificationService, cfg.Log),
		dashboardhandler.NewDashboardHandler(dashboardService, cfg.Log),
	}
}
