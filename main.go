package main

import (
	"log"
	"strings"
	"time"

	"server/auth"
	"server/config"
	"server/db"
	"server/faces"
	"server/handlers"
	"server/matching"
	"server/models"
	"server/processing"
	"server/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookieName     = "token"
	sessionExpirationTime = 30 * 86400 // 30 days
)

func main() {
	dbConn, err := db.Open(config.MYSQL_DSN, config.SQLITE_FILE)
	if err != nil {
		log.Fatalf("cannot open DB: %v", err)
	}
	if err := models.Migrate(dbConn); err != nil {
		log.Fatalf("cannot migrate DB: %v", err)
	}
	store, err := storage.New(storage.Config{
		Bucket:    config.S3_BUCKET,
		Region:    config.S3_REGION,
		Endpoint:  config.S3_ENDPOINT,
		AccessKey: config.S3_ACCESS_KEY,
		SecretKey: config.S3_SECRET_KEY,
		PublicURL: config.S3_PUBLIC_URL,
		BaseDir:   config.DISK_STORAGE_DIR,
		BaseURL:   config.PUBLIC_BASE_URL,
		Secret:    config.SESSION_KEY,
	})
	if err != nil {
		log.Fatalf("cannot set up storage: %v", err)
	}
	faceClient := faces.NewHTTPClient(config.FACE_API_URL, config.FACE_API_KEY)
	queue := processing.NewQueue(dbConn, faceClient, store, config.DETECT_WORKERS, config.DETECT_RETRIES)
	queue.Start()
	defer queue.Stop()

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))
	cookieStore := gormsessions.NewStore(dbConn, true, []byte(config.SESSION_KEY))
	cookieStore.Options(sessions.Options{MaxAge: sessionExpirationTime, Path: "/"})
	router.Use(sessions.Sessions(sessionCookieName, cookieStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/w/"})))
	}

	userHandler := handlers.NewUserHandler(dbConn)
	eventHandler := handlers.NewEventHandler(dbConn, config.GUEST_TOKEN_SECRET, config.GUEST_TOKEN_HOURS)
	mediaHandler := handlers.NewMediaHandler(dbConn, store, queue)
	enrollHandler := handlers.NewEnrollmentHandler(dbConn, store, faceClient)
	matchHandler := handlers.NewMatchHandler(&matching.Service{
		DB:               dbConn,
		Faces:            faceClient,
		DefaultThreshold: config.FACE_MATCH_THRESHOLD,
	})
	adminHandler := handlers.NewAdminHandler(dbConn, faceClient, queue, config.FACE_MATCH_THRESHOLD)

	authRouter := &auth.Router{Base: router, DB: dbConn}
	// Users
	router.POST("/user/register", userHandler.Register)
	router.POST("/user/login", userHandler.Login)
	authRouter.POST("/user/logout", userHandler.Logout)
	authRouter.GET("/user/status", userHandler.Status)
	authRouter.AdminGET("/user/list", userHandler.List)
	authRouter.AdminPOST("/user/save", userHandler.Save)
	// Events
	authRouter.POST("/event/create", eventHandler.Create)
	authRouter.POST("/event/save", eventHandler.Save)
	authRouter.GET("/event/list", eventHandler.List)
	authRouter.GET("/event/get", eventHandler.Get)
	authRouter.GET("/event/share", eventHandler.Share)
	router.POST("/guest/join", eventHandler.GuestJoin)
	// Media upload and gallery
	authRouter.POST("/media/new-url", mediaHandler.NewUploadURL)
	authRouter.POST("/media/confirm", mediaHandler.Confirm)
	authRouter.GET("/media/list", mediaHandler.List)
	authRouter.POST("/media/active", mediaHandler.SetActive)
	// Face enrollment
	authRouter.POST("/enroll/new-url", enrollHandler.NewUploadURL)
	authRouter.POST("/enroll/confirm", enrollHandler.Confirm)
	authRouter.GET("/enroll/get", enrollHandler.Get)
	authRouter.DELETE("/enroll/delete", enrollHandler.Delete)
	// Matched photos
	authRouter.GET("/match/list", matchHandler.List)
	// Event operations
	authRouter.GET("/event/stats", adminHandler.Stats)
	authRouter.POST("/event/retrain", adminHandler.Retrain)

	// Local storage backend routes; with S3 clients upload directly
	if disk, ok := store.(*storage.DiskStorage); ok {
		webHandler := handlers.NewWebHandler(disk)
		router.PUT("/w/upload", webHandler.Upload)
		router.GET("/w/file/*path", webHandler.File)
	}

	if config.TLS_DOMAINS != "" {
		log.Fatal(autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...))
	} else {
		log.Fatal(router.Run(config.BIND_ADDRESS))
	}
}
