package routes

import (
	"github.com/gofiber/fiber/v2"

	"edumesh/controllers"
	"edumesh/middleware"
	"edumesh/services"
	"edumesh/services/notifications"
	"edumesh/services/websocket"
)

// SetupRoutes wires every API route. All /api routes except auth entry
// points sit behind the JWT middleware.
func SetupRoutes(app *fiber.App, notifier *notifications.Service, hub *websocket.Hub, health *services.HealthService) {
	authController := controllers.NewAuthController()
	userController := &controllers.UserController{}
	schoolController := &controllers.SchoolController{}
	homeworkController := controllers.NewHomeworkController(notifier)
	attendanceController := controllers.NewAttendanceController(notifier)
	examController := controllers.NewExamController(notifier)
	feeController := controllers.NewFeeController(notifier)
	chatController := controllers.NewChatController(notifier, hub)
	notificationController := &controllers.NotificationController{}
	importController := &controllers.ImportController{}
	wsController := controllers.NewWebSocketController(hub)
	healthController := controllers.NewHealthController(health)

	// Chat frames arriving over the socket flow through the same delivery
	// path as REST sends.
	hub.SetInboundHandler(chatController.HandleSocketEvent)

	app.Get("/health", healthController.Health)

	api := app.Group("/api")

	// Public auth endpoints
	auth := api.Group("/auth")
	auth.Post("/send-otp", authController.SendOTP)
	auth.Post("/verify-otp", authController.VerifyOTP)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.Refresh)

	// Everything below requires a valid access token
	protected := api.Group("", middleware.JWTMiddleware())

	protected.Post("/auth/logout", authController.Logout)
	protected.Get("/auth/profile", authController.Profile)

	users := protected.Group("/users")
	users.Put("/profile", userController.UpdateProfile)
	users.Post("/avatar", userController.UploadAvatar)
	users.Get("/", middleware.RequireStaff(), userController.Directory)
	users.Get("/:id", userController.GetProfile)
	users.Patch("/:id/status", middleware.RequireAdmin(), userController.ToggleStatus)

	school := protected.Group("/schools")
	school.Get("/me", schoolController.GetSchool)
	school.Put("/me", middleware.RequireAdmin(), schoolController.UpdateSchool)
	school.Get("/stats", middleware.RequireAdmin(), schoolController.Stats)
	school.Get("/subjects", schoolController.ListSubjects)
	school.Post("/subjects", middleware.RequireAdmin(), schoolController.CreateSubject)
	school.Put("/subjects/:id", middleware.RequireAdmin(), schoolController.UpdateSubject)
	school.Delete("/subjects/:id", middleware.RequireAdmin(), schoolController.DeleteSubject)
	school.Get("/classes", schoolController.ListClasses)
	school.Post("/classes", middleware.RequireAdmin(), schoolController.CreateClass)
	school.Put("/classes/:id", middleware.RequireAdmin(), schoolController.UpdateClass)
	school.Delete("/classes/:id", middleware.RequireAdmin(), schoolController.DeleteClass)
	school.Post("/import/students", middleware.RequireAdmin(), importController.ImportStudents)
	school.Post("/import/teachers", middleware.RequireAdmin(), importController.ImportTeachers)

	homework := protected.Group("/homework")
	homework.Get("/", homeworkController.List)
	homework.Post("/", middleware.RequireStaff(), homeworkController.Create)
	homework.Post("/:id/submit", middleware.RequireRole("student"), homeworkController.Submit)
	homework.Get("/:id/submissions", middleware.RequireStaff(), homeworkController.Submissions)
	homework.Put("/submissions/:submissionId/grade", middleware.RequireStaff(), homeworkController.Grade)
	homework.Put("/:id", middleware.RequireStaff(), homeworkController.Update)
	homework.Delete("/:id", middleware.RequireStaff(), homeworkController.Delete)

	attendance := protected.Group("/attendance")
	attendance.Get("/", attendanceController.List)
	attendance.Post("/", middleware.RequireStaff(), attendanceController.Mark)
	attendance.Get("/summary", attendanceController.Summary)

	exams := protected.Group("/exams")
	exams.Get("/", examController.List)
	exams.Post("/", middleware.RequireStaff(), examController.Create)
	exams.Put("/:id", middleware.RequireStaff(), examController.Update)
	exams.Delete("/:id", middleware.RequireAdmin(), examController.Delete)

	fees := protected.Group("/fees")
	fees.Get("/", feeController.List)
	fees.Get("/summary", feeController.Summary)
	fees.Post("/", middleware.RequireAdmin(), feeController.Create)
	fees.Post("/:id/pay", middleware.RequireRole("parent", "admin"), feeController.Pay)

	chat := protected.Group("/chat")
	chat.Get("/conversations", chatController.Conversations)
	chat.Get("/users", chatController.ChatUsers)
	chat.Get("/history/:userId", chatController.History)
	chat.Post("/send", chatController.Send)

	notificationsGroup := protected.Group("/notifications")
	notificationsGroup.Get("/", notificationController.List)
	notificationsGroup.Get("/unread-count", notificationController.UnreadCount)
	notificationsGroup.Put("/read-all", notificationController.MarkAllRead)
	notificationsGroup.Get("/:id", notificationController.Get)
	notificationsGroup.Put("/:id/read", notificationController.MarkRead)

	// WebSocket endpoint (token handshake via query param)
	app.Use("/ws", wsController.UpgradeCheck)
	app.Get("/ws", wsController.Handle())
}
