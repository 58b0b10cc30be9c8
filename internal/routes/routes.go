package routes

import (
	"errors"

	"github.com/coachhub/coachhub-api/internal/config"
	"github.com/coachhub/coachhub-api/internal/handlers"
	"github.com/coachhub/coachhub-api/internal/middleware"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/coachhub/coachhub-api/internal/services"
	forumws "github.com/coachhub/coachhub-api/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dependencies are the shared clients the API is built on. Redis is optional.
type Dependencies struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger zerolog.Logger
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) error {
	if cfg == nil || deps.DB == nil {
		return errors.New("routes need a config and a database pool")
	}
	db := deps.DB

	userRepo := repository.NewUserRepository(db)
	coachProfileRepo := repository.NewCoachProfileRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	programRepo := repository.NewProgramRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	var storage services.AttachmentStore
	if cfg.StorageEnabled() {
		storage = services.NewSupabaseStorage(cfg.Supabase.URL, cfg.Supabase.Bucket, cfg.Supabase.ServiceKey)
	}

	var views services.ViewTracker
	if deps.Redis != nil {
		views = services.NewRedisViewTracker(deps.Redis)
	} else {
		views = services.NewPostgresViewTracker(db)
	}

	forumHub := forumws.NewHub()
	go forumHub.Run()

	gate := services.NewRelationshipGate(relationshipRepo)
	availabilityService := services.NewAvailabilityService(userRepo, coachProfileRepo, bookingRepo, cfg.Location())
	bookingService := services.NewBookingService(db, bookingRepo, userRepo, programRepo, gate)
	relationshipService := services.NewRelationshipService(relationshipRepo, userRepo)
	programService := services.NewProgramService(programRepo, userRepo, gate, storage)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, gate)
	progressService := services.NewProgressService(progressRepo, programRepo, relationshipRepo, gate)
	forumService := services.NewForumService(db, views, forumHub, deps.Logger)

	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	bookingHandler := handlers.NewBookingHandler(bookingService, cfg.Location())
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	programHandler := handlers.NewProgramHandler(programService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	progressHandler := handlers.NewProgressHandler(progressService)
	forumHandler := handlers.NewForumHandler(forumService, forumHub)

	authRequired := middleware.AuthRequired(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	api := app.Group("/api/v1")

	// Public forum reads and the live feed come first so the auth group below does not catch them.
	forumPublic := api.Group("/forum", optionalAuth)
	forumPublic.Get("/topics", forumHandler.ListTopics)
	forumPublic.Get("/topics/:id", forumHandler.GetTopic)
	forumPublic.Use("/ws", forumHandler.FeedUpgrade)
	forumPublic.Get("/ws", websocket.New(forumHandler.Feed))

	coaches := api.Group("/coaches", authRequired)
	coaches.Put("/availability", availabilityHandler.UpdateAvailability)
	coaches.Get("/:id/availability", availabilityHandler.GetAvailability)
	coaches.Get("/:id/available-slots", availabilityHandler.AvailableSlots)
	coaches.Get("/:id/check-availability", bookingHandler.CheckAvailability)

	bookings := api.Group("/bookings", authRequired)
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Put("/:id/status", bookingHandler.UpdateStatus)

	relationships := api.Group("/relationships", authRequired)
	relationships.Post("", relationshipHandler.Create)
	relationships.Get("", relationshipHandler.List)
	relationships.Put("/:id/status", relationshipHandler.UpdateStatus)

	programs := api.Group("/programs", authRequired)
	programs.Post("", programHandler.CreateProgram)
	programs.Get("", programHandler.ListPrograms)
	programs.Get("/:id", programHandler.GetProgram)
	programs.Get("/:id/download", programHandler.DownloadProgram)

	subscriptions := api.Group("/subscriptions", authRequired)
	subscriptions.Post("", subscriptionHandler.Create)
	subscriptions.Get("", subscriptionHandler.List)
	subscriptions.Post("/:id/cancel", subscriptionHandler.Cancel)

	api.Post("/progress", authRequired, progressHandler.Record)
	api.Get("/clients/:id/progress", authRequired, progressHandler.ListForClient)

	forum := api.Group("/forum", authRequired)
	forum.Post("/topics", forumHandler.CreateTopic)
	forum.Post("/topics/:id/posts", forumHandler.CreateReply)
	forum.Delete("/topics/:id", forumHandler.DeleteTopic)
	forum.Put("/topics/:id/pin", forumHandler.PinTopic)
	forum.Put("/topics/:id/lock", forumHandler.LockTopic)
	forum.Delete("/posts/:id", forumHandler.DeletePost)

	return nil
}
