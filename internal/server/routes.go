package server

import (
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/cashier"
	"restoran-pos/internal/config"
	"restoran-pos/internal/dashboard"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/models"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/tables"

	"github.com/gofiber/fiber/v2"
)

func registerRoutes(app *fiber.App, cfg *config.Config) {
	admin := auth.RequireRole(models.RoleAdmin)
	floor := auth.RequireRole(models.RoleAdmin, models.RoleWaiter)
	cashDesk := auth.RequireRole(models.RoleAdmin, models.RoleCashier)
	floorView := auth.RequireRole(models.RoleAdmin, models.RoleWaiter, models.RoleCashier)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Post("/auth/change-password", auth.ChangePasswordHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin", admin)

	// Kullanıcı yönetimi
	adminRoutes.Get("/users", auth.ListUsersHandler())
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Put("/users/:id", auth.UpdateUserHandler())

	// Kategori ve ürün yönetimi
	adminRoutes.Post("/categories", inventory.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", inventory.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", inventory.DeleteCategoryHandler())
	adminRoutes.Get("/products/low-stock", inventory.LowStockReportHandler())
	adminRoutes.Post("/products", inventory.CreateProductHandler())
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler())
	adminRoutes.Post("/products/:id/stock", inventory.AdjustStockHandler())

	// Masalar
	protected.Get("/tables", floorView, tables.ListTablesHandler())
	protected.Get("/tables/map", floorView, tables.TableMapHandler())
	protected.Get("/tables/status", tables.TableStatusSnapshotHandler())
	protected.Get("/tables/:id", floorView, tables.GetTableHandler())
	protected.Post("/tables", admin, tables.CreateTableHandler())
	protected.Put("/tables/:id", admin, tables.UpdateTableHandler())
	protected.Delete("/tables/:id", admin, tables.DeleteTableHandler())
	protected.Post("/tables/:id/status", floor, tables.ChangeTableStatusHandler())

	// Ürün listesi (admin, garson)
	protected.Get("/categories", inventory.ListCategoriesHandler())
	protected.Get("/categories/:id/products", inventory.ProductsByCategoryHandler())
	protected.Get("/products", floor, inventory.ListProductsHandler())
	protected.Get("/products/:id", floor, inventory.GetProductHandler())

	// Komandalar
	protected.Get("/orders", orders.ListOrdersHandler(cfg))
	protected.Get("/orders/kitchen",
		auth.RequireRole(models.RoleAdmin, models.RoleKitchen),
		orders.KitchenActiveHandler())
	protected.Delete("/orders/items/:itemId", floor, orders.RemoveItemHandler())
	protected.Get("/orders/:id", orders.GetOrderHandler())
	protected.Post("/orders", floor, orders.CreateOrderHandler())
	protected.Post("/orders/:id/items", floor, orders.AddItemHandler())
	protected.Post("/orders/:id/status",
		auth.RequireRole(models.RoleAdmin, models.RoleKitchen, models.RoleWaiter),
		orders.ChangeStatusHandler())
	protected.Post("/orders/:id/cancel", floor, orders.CancelOrderHandler())

	// Kasa
	cashRoutes := protected.Group("/cashier")
	cashRoutes.Get("/dashboard", cashDesk, cashier.DashboardHandler())
	cashRoutes.Post("/shifts/open", cashDesk, cashier.OpenShiftHandler())
	cashRoutes.Post("/shifts/close", cashDesk, cashier.CloseShiftHandler())
	cashRoutes.Get("/shifts", cashDesk, cashier.ShiftHistoryHandler(cfg))
	cashRoutes.Get("/shifts/:id/report", cashDesk, cashier.ShiftReportHandler())
	cashRoutes.Get("/shifts/:id/report.xlsx", cashDesk, cashier.ExportShiftReportHandler())
	cashRoutes.Post("/payments", cashDesk, cashier.ProcessPaymentHandler())
	cashRoutes.Get("/payments/pending", cashDesk, cashier.PendingPaymentsHandler())
	cashRoutes.Get("/payments/:id/ticket",
		auth.RequireRole(models.RoleAdmin, models.RoleCashier, models.RoleWaiter),
		cashier.TicketHandler())

	// Audit log
	protected.Get("/audit-logs", admin, audit.ListAuditLogsHandler())

	// Dashboard
	protected.Get("/dashboard/sales-chart", cashDesk, dashboard.SalesChartHandler())
}
