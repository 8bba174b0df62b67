package routes

import (
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/handlers"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/payments"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, gateway *payments.Gateway) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	paymentHandler := handlers.NewPaymentHandler(db, cfg, gateway)
	transactionHandler := handlers.NewTransactionHandler(db)
	reviewHandler := handlers.NewReviewHandler(db)
	carePlanHandler := handlers.NewCarePlanHandler(db)
	messageHandler := handlers.NewMessageHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Catalog browsing does not require an account
		public.GET("/plans", productHandler.GetPlans)
		public.GET("/products", productHandler.GetProducts)
		public.GET("/products/:id", productHandler.GetProductByID)
		public.GET("/doctors/:id/reviews", reviewHandler.GetDoctorReviews)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Doctor directory, accessible by all authenticated users
			userRoutes.GET("/doctors", userHandler.GetDoctors)
			userRoutes.GET("/doctors/:id", userHandler.GetDoctorByID)

			// Patients of the calling doctor (all patients for admins)
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeactivateUser)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Wallet-funded bookings settle inline; paid bookings go
			// through /payments first
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)

			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.GET("/:id/review", reviewHandler.GetAppointmentReview)

			appointmentRoutes.PATCH("/:id/cancel", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CancelAppointment)
			appointmentRoutes.PATCH("/:id/accept", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.AcceptAppointment)
			appointmentRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.UpdateAppointmentStatus)
		}

		// Patient billing surface
		patientRoutes := private.Group("/me")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			patientRoutes.GET("/purchases", productHandler.GetMyPurchases)
			patientRoutes.GET("/wallet", productHandler.GetMyWallet)
			patientRoutes.POST("/purchases/cancel", productHandler.CancelMyPlan)
			patientRoutes.GET("/care-plans", carePlanHandler.GetMyCarePlans)
		}

		// Care plan routes
		carePlanRoutes := private.Group("/care-plans")
		{
			carePlanRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), carePlanHandler.CreateCarePlan)
			carePlanRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleDoctor), carePlanHandler.GetDoctorCarePlans)
			carePlanRoutes.GET("/:id", carePlanHandler.GetCarePlanByID)
			carePlanRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), carePlanHandler.UpdateCarePlan)
			carePlanRoutes.GET("/appointment/:appointmentId", carePlanHandler.CheckCarePlanExists)
		}

		// Payment routes
		paymentRoutes := private.Group("/payments")
		paymentRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			paymentRoutes.POST("/intent", paymentHandler.CreatePaymentIntent)
			paymentRoutes.POST("/confirm", paymentHandler.ConfirmPayment)
		}

		// Ledger routes, visibility scoped inside the handler
		transactionRoutes := private.Group("/transactions")
		{
			transactionRoutes.GET("", transactionHandler.GetTransactions)
			transactionRoutes.GET("/:id", transactionHandler.GetTransactionByID)
		}

		// Review routes
		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), reviewHandler.SubmitReview)
		}

		// Admin billing operations
		adminBilling := private.Group("/admin")
		adminBilling.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminBilling.POST("/purchases/:id/expire", productHandler.ExpirePurchase)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("", messageHandler.GetMessagesForUser)
			messageRoutes.GET("/new", messageHandler.GetNewMessages)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
