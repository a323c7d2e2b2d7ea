package main

import (
	"crypto/ed25519"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"projectx/internal/auth"
	"projectx/internal/cache"
	"projectx/internal/config"
	"projectx/internal/database"
	"projectx/internal/docstore"
	"projectx/internal/handlers"
	"projectx/internal/middleware"
	"projectx/internal/models"
	"projectx/internal/users"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureAuthIndexes(db); err != nil {
		log.Printf("auth index warning: %v", err)
	}

	store := docstore.NewMongo(db)

	accessKey := loadSigningKey(config.AppEnv.AccessTokenSeed, "access")
	refreshKey := loadSigningKey(config.AppEnv.RefreshTokenSeed, "refresh")

	credentialCache := cache.New[*models.UserCredential](config.AppEnv.CacheMaxSize)
	userCache := cache.New[*models.User](config.AppEnv.CacheMaxSize)

	credentials := auth.NewCredentialStore(store, credentialCache, config.AppEnv.HashCost, config.AppEnv.CredentialCacheTTL)
	tokens := auth.NewTokenIssuer(config.AppEnv.ExternalURL, accessKey, refreshKey, config.AppEnv.AccessTokenTTL, config.AppEnv.RefreshTokenTTL)
	ledger := auth.NewRefreshTokenLedger(store)
	userSvc := users.NewService(store, userCache)
	authSvc := auth.NewService(credentials, tokens, ledger, userSvc)

	r := gin.Default()

	registration := r.Group("/api/v1/registration")
	{
		registration.POST("/register", handlers.Register(userSvc, authSvc))
		registration.GET("/validate", handlers.ValidateEmail(userSvc))
	}

	authRoutes := r.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", handlers.Login(authSvc))
		authRoutes.POST("/refresh", handlers.Refresh(authSvc))
		authRoutes.GET("/validate", middleware.AuthGuard(tokens, ""), handlers.Validate())
	}

	userRoutes := r.Group("/api/v1/users")
	userRoutes.Use(middleware.AuthGuard(tokens, ""))
	{
		userRoutes.GET("/:id", handlers.GetUser(userSvc))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

func loadSigningKey(seed, class string) ed25519.PrivateKey {
	if seed != "" {
		key, err := auth.SigningKeyFromSeed(seed)
		if err != nil {
			log.Fatalf("%s token key: %v", class, err)
		}
		return key
	}

	log.Printf("no %s token seed configured, generating an ephemeral key; issued tokens will not survive a restart", class)
	key, err := auth.GenerateSigningKey()
	if err != nil {
		log.Fatalf("%s token key: %v", class, err)
	}
	return key
}
