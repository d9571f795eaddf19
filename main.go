package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nopalinto/discord-profile-card/handlers"
	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/internal/secrets"
	"github.com/Nopalinto/discord-profile-card/internal/store"
	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/services"

	_ "net/http/pprof"
)

var (
	kv              *store.Store
	activityService *services.ActivityService
	streakService   *services.StreakService
	sweepService    *services.SweepService
	secretsService  *services.SecretsService
	userService     *services.UserService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	redisURL := os.Getenv("KV_URL")
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if redisURL == "" {
		log.Fatal("KV_URL or REDIS_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	kv, err = store.Open(ctx, redisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	log.Println("Successfully connected to Redis")

	secretsKey := os.Getenv("SECRETS_KEY")
	if secretsKey == "" {
		log.Fatal("SECRETS_KEY environment variable is not set")
	}
	box, err := secrets.NewBox(secretsKey)
	if err != nil {
		log.Fatal("Failed to initialize secrets box:", err)
	}

	lanyard := presence.NewClient()

	activityService = services.NewActivityService(kv, lanyard)
	streakService = services.NewStreakService(kv)
	sweepService = services.NewSweepService(kv, lanyard)
	secretsService = services.NewSecretsService(kv, box)
	userService = services.NewUserService(kv)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing Redis connection...")
		kv.Close()
	}()

	activityHandler := handlers.NewActivityHandler(activityService)
	streakHandler := handlers.NewStreakHandler(streakService)
	sweepHandler := handlers.NewSweepHandler(sweepService)
	secretsHandler := handlers.NewSecretsHandler(secretsService)
	userHandler := handlers.NewUserHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := kv.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "redis connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "discord-profile-card"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/activities", activityHandler.GetActivities).Methods("GET")
	api.HandleFunc("/cron/update-activities", sweepHandler.RunSweep).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/activities", activityHandler.StoreActivities).Methods("POST")
	protected.HandleFunc("/streaks", streakHandler.GetStreaks).Methods("GET")
	protected.HandleFunc("/streaks", streakHandler.UpdateStreak).Methods("POST")
	protected.HandleFunc("/rawg-key", secretsHandler.GetAPIKey).Methods("GET")
	protected.HandleFunc("/rawg-key", secretsHandler.SetAPIKey).Methods("POST")
	protected.HandleFunc("/user", userHandler.DeleteUser).Methods("DELETE")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// The sweep normally runs via the cron endpoint. When no external
	// scheduler exists, SWEEP_INTERVAL (e.g. "24h") enables an in-process
	// ticker as the backup refresh.
	stopSweep := make(chan struct{})
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatal("Invalid SWEEP_INTERVAL:", err)
		}
		go runSweepLoop(d, stopSweep)
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)
	close(stopSweep)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func runSweepLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("In-process sweep enabled every %s", interval)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := sweepService.Sweep(ctx); err != nil {
				log.Printf("Scheduled sweep failed: %v", err)
			}
			cancel()
		}
	}
}
