// Package server assembles the fiber application: middleware stack, error
// handler and every /api route.
package server

import (
	"strings"
	"time"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/auth"
	"tastyfruit-backend/internal/config"
	"tastyfruit-backend/internal/dashboard"
	"tastyfruit-backend/internal/metrics"
	"tastyfruit-backend/internal/middleware"
	"tastyfruit-backend/internal/models"
	"tastyfruit-backend/internal/ordering"
	"tastyfruit-backend/internal/product"
	"tastyfruit-backend/internal/publication"
	"tastyfruit-backend/internal/recipe"
	"tastyfruit-backend/internal/storage"
	"tastyfruit-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Logger  zerolog.Logger
	Revoker auth.Revoker
	Bucket  storage.Bucket
	Limiter *auth.LoginLimiter
	// Now is the clock for token expiry, publish timestamps and metric
	// windows. Nil means time.Now.
	Now func() time.Time
	// AssetDir, when set, is served at PUBLIC_ASSET_BASE_URL.
	AssetDir string
}

func New(d Deps) *fiber.App {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if d.Revoker == nil {
		d.Revoker = auth.NoopRevoker{}
	}
	if d.Limiter == nil {
		d.Limiter = auth.NewLoginLimiter(d.Config.LoginRatePerMinute, now)
	}

	app := fiber.New(fiber.Config{
		AppName:      "tastyfruit-backend",
		ErrorHandler: apperror.Handler(d.Logger),
		BodyLimit:    storage.MaxImageSize + 1<<20,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(d.Config.AllowedOrigins(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if d.AssetDir != "" {
		app.Static(d.Config.PublicAssetBaseURL, d.AssetDir)
	}

	recorder := audit.NewRecorder(d.DB, d.Logger, now)
	products := product.NewHandler(d.DB, ordering.NewEngine(d.DB), recorder, d.Bucket, d.Logger)
	recipes := recipe.NewHandler(d.DB, recorder)
	publications := publication.NewHandler(d.DB, recorder, now)
	users := user.NewHandler(d.DB, recorder)
	dash := dashboard.NewHandler(metrics.NewEngine(d.DB, now))

	api := app.Group("/api")

	// Public
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api.Post("/auth/register-admin", d.Limiter.Middleware(), auth.RegisterAdminHandler(d.DB))
	api.Post("/auth/login", d.Limiter.Middleware(), auth.LoginHandler(d.DB, d.Config, now))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Config.JWTSecret, d.Revoker, now))

	protected.Get("/auth/me", auth.MeHandler(d.DB))
	protected.Post("/auth/logout", auth.LogoutHandler(d.Revoker))

	// Products
	protected.Get("/products", products.ListProductsHandler())
	protected.Post("/products", products.CreateProductHandler())
	protected.Get("/products/:id", products.GetProductHandler())
	protected.Put("/products/:id", products.ReplaceProductHandler())
	protected.Patch("/products/:id", products.PatchProductHandler())
	protected.Delete("/products/:id", products.DeleteProductHandler())
	protected.Patch("/products/:id/order", products.ReorderProductHandler())
	protected.Patch("/products/:id/active", products.SetProductActiveHandler())
	protected.Post("/products/:id/image", products.UploadProductImageHandler())

	// Fruit types
	protected.Get("/products/:id/fruit-types", products.ListFruitTypesHandler())
	protected.Post("/products/:id/fruit-types", products.CreateFruitTypeHandler())
	protected.Get("/fruit-types/:id", products.GetFruitTypeHandler())
	protected.Put("/fruit-types/:id", products.UpdateFruitTypeHandler())
	protected.Delete("/fruit-types/:id", products.DeleteFruitTypeHandler())
	protected.Patch("/fruit-types/:id/order", products.ReorderFruitTypeHandler())

	// Recipes
	protected.Get("/recipes", recipes.ListRecipesHandler())
	protected.Post("/recipes", recipes.CreateRecipeHandler())
	protected.Get("/recipes/:id", recipes.GetRecipeHandler())
	protected.Put("/recipes/:id", recipes.UpdateRecipeHandler())
	protected.Delete("/recipes/:id", recipes.DeleteRecipeHandler())
	protected.Patch("/recipes/:id/publish", recipes.PublishRecipeHandler())

	// Publications
	protected.Get("/publications", publications.ListPublicationsHandler())
	protected.Post("/publications", publications.CreatePublicationHandler())
	protected.Get("/publications/:id", publications.GetPublicationHandler())
	protected.Put("/publications/:id", publications.UpdatePublicationHandler())
	protected.Delete("/publications/:id", publications.DeletePublicationHandler())
	protected.Patch("/publications/:id/publish", publications.PublishPublicationHandler())

	// Dashboard
	protected.Get("/dashboard/metrics", dash.MetricsHandler())
	protected.Get("/dashboard/categories", dash.CategoriesHandler())
	protected.Get("/dashboard/publish-status", dash.PublishStatusHandler())
	protected.Get("/dashboard/content-chart", dash.ContentChartHandler())

	// Audit
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(d.DB))

	// Admin only
	adminOnly := auth.RequireRole(models.RoleAdmin)
	protected.Post("/audit-logs/:id/undo", adminOnly, audit.UndoAuditLogHandler(recorder))
	protected.Get("/users", adminOnly, users.ListUsersHandler())
	protected.Post("/users", adminOnly, users.CreateUserHandler())
	protected.Get("/users/:id", adminOnly, users.GetUserHandler())
	protected.Put("/users/:id", adminOnly, users.UpdateUserHandler())
	protected.Delete("/users/:id", adminOnly, users.DeleteUserHandler())

	return app
}
