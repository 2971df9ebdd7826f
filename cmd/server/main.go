package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/maneesh/labarchive/internal/config"
	"github.com/maneesh/labarchive/internal/handlers"
	"github.com/maneesh/labarchive/internal/repository"
	"github.com/maneesh/labarchive/internal/storage"
	"github.com/maneesh/labarchive/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log.Println("Starting LabArchive service...")

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Service: %s, Port: %s", cfg.ServiceName, cfg.ServicePort)

	// Initialize OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// The storage backends are chosen per call from the environment, so
	// there are no upfront connections to fail on here. Log the current
	// classification for operator sanity.
	detector := storage.NewDetector(nil)
	env := detector.Classify()
	log.Printf("Environment: managed=%v remoteKV=%v remoteBlob=%v",
		env.ManagedPlatform, env.RemoteKVAvailable, env.RemoteBlobAvailable)

	collections := storage.NewCollections(detector, cfg.DataDir)
	blobs := storage.NewBlobs(detector, cfg.UploadsDir)

	fileRepo := repository.NewFileRepository(collections, blobs)
	projectRepo := repository.NewProjectRepository(collections, fileRepo)

	admin := handlers.NewAdminSession(cfg.AdminPassword)
	projectHandler := handlers.NewProjectHandler(projectRepo)
	fileHandler := handlers.NewFileHandler(fileRepo, projectRepo)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/api/admin/login", admin.Login).Methods("POST")
	router.HandleFunc("/api/admin/logout", admin.Logout).Methods("POST")

	router.HandleFunc("/api/projects", projectHandler.List).Methods("GET")
	router.HandleFunc("/api/projects", admin.Require(projectHandler.Create)).Methods("POST")
	router.HandleFunc("/api/projects/{id}", projectHandler.Get).Methods("GET")
	router.HandleFunc("/api/projects/{id}", admin.Require(projectHandler.Update)).Methods("PUT")
	router.HandleFunc("/api/projects/{id}", admin.Require(projectHandler.Delete)).Methods("DELETE")

	router.HandleFunc("/api/projects/{id}/files", fileHandler.ListByProject).Methods("GET")
	router.HandleFunc("/api/projects/{id}/files", admin.Require(fileHandler.Upload)).Methods("POST")
	router.HandleFunc("/api/projects/{projectId}/files/{categoryId}/{filename}", admin.Require(fileHandler.Delete)).Methods("DELETE")
	router.HandleFunc("/files/{projectId}/{categoryId}/{filename}", fileHandler.Download).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      otelhttp.NewHandler(router, "labarchive"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
