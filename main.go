package main

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"planhub-api/handlers"
	"planhub-api/initializers"
	"planhub-api/middleware"
	"planhub-api/repository"
	"planhub-api/websocket"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be set and at least 32 characters")
	}

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		log.Printf("DB connection failed: %v, retrying in 2s...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("Could not connect to database:", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Migration driver error:", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		log.Fatal("Migration init error:", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("Migration failed:", err)
	}

	if err := initializers.InitDefaults(db); err != nil {
		log.Fatal("Failed to initialize default data:", err)
	}

	if err := initializers.InitMinio(); err != nil {
		log.Fatal("Failed to initialize Minio:", err)
	}

	usersRepo := repository.NewUsersRepository(db)
	workspacesRepo := repository.NewWorkspacesRepository(db)
	projectsRepo := repository.NewProjectsRepository(db)
	tasksRepo := repository.NewTasksRepository(db)
	commentsRepo := repository.NewCommentsRepository(db)

	if os.Getenv("GIN_MODE") == "release" || strings.ToLower(os.Getenv("APP_ENV")) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(gin.Recovery())

	// Configure trusted proxies for correct client IP handling in production
	trustedProxies := os.Getenv("TRUSTED_PROXIES")
	if trustedProxies != "" {
		parts := strings.Split(trustedProxies, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := r.SetTrustedProxies(parts); err != nil {
			log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
		}
	} else {
		// Default to loopback only; override via TRUSTED_PROXIES in production
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	}

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware())

	hub := websocket.NewHub(workspacesRepo, usersRepo, jwtSecret)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtSecret)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	workspacesHandler := handlers.NewWorkspacesHandler(workspacesRepo, usersRepo).WithBroadcaster(hub)
	projectsHandler := handlers.NewProjectsHandler(projectsRepo, workspacesRepo).WithBroadcaster(hub)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, projectsRepo, workspacesRepo).WithBroadcaster(hub)
	commentsHandler := handlers.NewCommentsHandler(commentsRepo, tasksRepo, workspacesRepo).WithBroadcaster(hub)

	r.GET("/health", handlers.HealthCheck)

	// Registration and login carry a stricter per-IP limit
	authPublic := r.Group("/auth", middleware.RateLimitAuthMiddleware())
	authPublic.POST("/register", authHandler.Register)
	authPublic.POST("/login", authHandler.Login)

	r.GET("/ws", websocket.ServeWS(hub))

	auth := r.Group("/", handlers.AuthMiddleware(jwtSecret))
	{
		auth.GET("/auth/me", authHandler.Me)

		auth.PATCH("/users/me", usersHandler.UpdateProfile)
		auth.PATCH("/users/me/password", usersHandler.ChangePassword)
		auth.POST("/users/me/avatar", usersHandler.UploadAvatar)
		auth.GET("/files/:id", usersHandler.GetFile)

		auth.GET("/workspaces", workspacesHandler.GetWorkspaces)
		auth.POST("/workspaces", workspacesHandler.CreateWorkspace)
		auth.GET("/workspaces/:id", workspacesHandler.GetWorkspace)
		auth.PATCH("/workspaces/:id", workspacesHandler.UpdateWorkspace)
		auth.DELETE("/workspaces/:id", workspacesHandler.DeleteWorkspace)
		auth.GET("/workspaces/:id/members", workspacesHandler.GetMembers)
		auth.POST("/workspaces/:id/members", workspacesHandler.AddMember)
		auth.DELETE("/workspaces/:id/members/:userId", workspacesHandler.RemoveMember)
		auth.PATCH("/workspaces/:id/members/:userId", workspacesHandler.UpdateMemberRole)

		auth.GET("/projects", projectsHandler.GetProjects)
		auth.POST("/projects", projectsHandler.CreateProject)
		auth.GET("/projects/:id", projectsHandler.GetProject)
		auth.PATCH("/projects/:id", projectsHandler.UpdateProject)
		auth.DELETE("/projects/:id", projectsHandler.DeleteProject)
		auth.GET("/projects/:id/members", projectsHandler.GetProjectMembers)
		auth.POST("/projects/:id/members", projectsHandler.AddMember)
		auth.DELETE("/projects/:id/members/:userId", projectsHandler.RemoveMember)

		auth.GET("/tasks", tasksHandler.GetTasks)
		auth.POST("/tasks", tasksHandler.CreateTask)
		auth.GET("/tasks/:id", tasksHandler.GetTask)
		auth.PATCH("/tasks/:id", tasksHandler.UpdateTask)
		auth.DELETE("/tasks/:id", tasksHandler.DeleteTask)

		auth.GET("/comments", commentsHandler.GetComments)
		auth.POST("/comments", commentsHandler.CreateComment)
		auth.PATCH("/comments/:id", commentsHandler.UpdateComment)
		auth.DELETE("/comments/:id", commentsHandler.DeleteComment)
	}

	r.Run(":8080")
}
