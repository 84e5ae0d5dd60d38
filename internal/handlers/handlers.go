package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/middleware"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/service"
	"lumiere/salon/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	catalog     *service.CatalogService
	cart        *service.CartService
	db          *pgxpool.Pool
	cache       *redis.Client
	users       *repository.UserRepository
	categories  *repository.CategoryRepository
	services    *repository.ServiceRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	cartRepo := repository.NewCartRepository(db)

	auth := service.NewAuthService(userRepo, cfg, log)
	catalog := service.NewCatalogService(categoryRepo, serviceRepo, store, cache, cfg, log)
	cart := service.NewCartService(cartRepo, serviceRepo, categoryRepo, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		catalog:     catalog,
		cart:        cart,
		db:          db,
		cache:       cache,
		users:       userRepo,
		categories:  categoryRepo,
		services:    serviceRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh-token", h.RefreshToken)

	router.GET("/categories", h.ListCategories)
	router.GET("/services", h.ListServices)

	user := router.Group("/user")
	user.Use(middleware.Auth(h.cfg))
	user.GET("/profile", h.GetProfile)
	user.PUT("/profile", h.UpdateProfile)
	user.PUT("/password", h.ChangePassword)

	cart := router.Group("/cart")
	cart.Use(middleware.Auth(h.cfg))
	cart.GET("", h.ListCart)
	cart.POST("", h.AddToCart)
	cart.PUT("/:serviceId", h.UpdateCartItem)
	cart.DELETE("/:serviceId", h.DeleteCartItem)

	admin := router.Group("/admin")
	admin.Use(
		middleware.Auth(h.cfg),
		middleware.RequireAdmin(),
	)
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users", h.AdminCreateUser)
	admin.PUT("/users/:email", h.AdminUpdateUser)
	admin.DELETE("/users/:email", h.AdminDeleteUser)

	admin.GET("/categories", h.AdminListCategories)
	admin.POST("/categories", h.AdminCreateCategory)
	admin.PUT("/categories/:id", h.AdminUpdateCategory)
	admin.DELETE("/categories/:id", h.AdminDeleteCategory)

	admin.GET("/services", h.AdminListServices)
	admin.POST("/services", h.AdminCreateService)
	admin.PUT("/services/:id", h.AdminUpdateService)
	admin.DELETE("/services/:id", h.AdminDeleteService)
}
