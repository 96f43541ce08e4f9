package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvas-sync-server/internal/config"
	"canvas-sync-server/internal/handler"
	"canvas-sync-server/internal/middleware"
	"canvas-sync-server/internal/presence"
	"canvas-sync-server/internal/repository"
	"canvas-sync-server/internal/service"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		log.Fatalf("Failed to connect to CouchDB: %v", err)
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		log.Printf("Created database: %s", cfg.Database.Name)
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	shapeRepo := repository.NewShapeRepository(client, cfg.Database.Name)
	groupRepo := repository.NewGroupRepository(client, cfg.Database.Name)

	presenceManager := presence.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go presenceManager.Run()

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	shapeService := service.NewShapeService(shapeRepo, cfg.Canvas.LockTimeout)
	lockService := service.NewLockService(shapeRepo, cfg.Canvas.LockTimeout)
	defer lockService.Close()
	groupService := service.NewGroupService(groupRepo, shapeRepo)
	orderService := service.NewZOrderService(shapeRepo)

	authHandler := handler.NewAuthHandler(authService)
	shapeHandler := handler.NewShapeHandler(shapeService)
	lockHandler := handler.NewLockHandler(lockService)
	groupHandler := handler.NewGroupHandler(groupService)
	orderHandler := handler.NewOrderHandler(orderService)
	wsHandler := handler.NewWebSocketHandler(presenceManager, cfg.JWT.Secret)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/shapes", shapeHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes", shapeHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/shapes/batch", shapeHandler.CreateBatch).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/clear", shapeHandler.Clear).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}", shapeHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/shapes/{id}", shapeHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/shapes/{id}", shapeHandler.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/duplicate", shapeHandler.Duplicate).Methods("POST", "OPTIONS")

	protected.HandleFunc("/shapes/{id}/lock", lockHandler.Acquire).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/lock", lockHandler.Release).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/edit-lock", lockHandler.AcquireEditing).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/edit-lock", lockHandler.ReleaseEditing).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/shapes/{id}/bring-to-front", orderHandler.BringToFront).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/send-to-back", orderHandler.SendToBack).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/bring-forward", orderHandler.BringForward).Methods("POST", "OPTIONS")
	protected.HandleFunc("/shapes/{id}/send-backward", orderHandler.SendBackward).Methods("POST", "OPTIONS")
	protected.HandleFunc("/z-range", orderHandler.Range).Methods("GET", "OPTIONS")

	protected.HandleFunc("/groups", groupHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/groups", groupHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/groups/{id}", groupHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/groups/{id}", groupHandler.Ungroup).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/groups/{id}/move", groupHandler.Move).Methods("POST", "OPTIONS")
	protected.HandleFunc("/groups/{id}/duplicate", groupHandler.Duplicate).Methods("POST", "OPTIONS")
	protected.HandleFunc("/groups/{id}/delete", groupHandler.Delete).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Canvas Sync Server on %s (env: %s)", addr, cfg.Server.Env)
		log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"canvas-sync-server"}`))
}
