package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"deepFocusAPI/handlers"
	"deepFocusAPI/internal/metrics"
	"deepFocusAPI/middleware"
	"deepFocusAPI/repository/postgres"
	"deepFocusAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	redisClient        *redis.Client
	statsService       *services.StatsService
	achievementService *services.AchievementService
	competitionService *services.CompetitionService
	leaderboardService *services.LeaderboardService
	settlementWorker   *services.SettlementWorker
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

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, leaderboard caching disabled: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Redis unreachable, leaderboard caching disabled: %v", err)
				redisClient = nil
			} else {
				log.Println("Redis leaderboard cache initialized")
			}
		}
	} else {
		log.Println("REDIS_URL not set, leaderboard caching disabled")
	}

	statsRepo := postgres.NewStatsRepo(dbPool)
	achievementRepo := postgres.NewAchievementRepo(dbPool)
	competitionRepo := postgres.NewCompetitionRepo(dbPool)
	entryRepo := postgres.NewEntryRepo(dbPool)

	achievementService = services.NewAchievementService(achievementRepo, statsRepo)
	competitionService = services.NewCompetitionService(competitionRepo, entryRepo, statsRepo)
	statsService = services.NewStatsService(statsRepo, achievementService, competitionService)
	leaderboardService = services.NewLeaderboardService(entryRepo, redisClient)
	settlementWorker = services.NewSettlementWorker(competitionRepo, competitionService, leaderboardService, time.Minute)

	middleware.InitPrometheus()
	metrics.Register()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}()

	statsHandler := handlers.NewStatsHandler(statsService)
	achievementHandler := handlers.NewAchievementHandler(achievementService, statsService)
	competitionHandler := handlers.NewCompetitionHandler(competitionService, leaderboardService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go settlementWorker.Run(workerCtx)

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "deepFocus-api"}`))
	}).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	protected.HandleFunc("/stats/session", statsHandler.RecordSession).Methods("POST")
	protected.HandleFunc("/stats/daily", statsHandler.GetDailyStats).Methods("GET")
	protected.HandleFunc("/stats/weekly", statsHandler.GetWeeklyStats).Methods("GET")
	protected.HandleFunc("/stats/monthly", statsHandler.GetMonthlyStats).Methods("GET")

	protected.HandleFunc("/achievements", achievementHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/achievements/{achievementID}", achievementHandler.GetAchievement).Methods("GET")
	protected.HandleFunc("/achievements/{achievementID}/check", achievementHandler.CheckAchievement).Methods("GET")
	protected.HandleFunc("/achievements/{achievementID}/favorite", achievementHandler.SetFavorite).Methods("PUT")
	protected.HandleFunc("/achievements/{achievementID}/share", achievementHandler.ShareAchievement).Methods("POST")

	protected.HandleFunc("/competitions", competitionHandler.CreateCompetition).Methods("POST")
	protected.HandleFunc("/competitions", competitionHandler.GetCompetitions).Methods("GET")
	protected.HandleFunc("/competitions/joined", competitionHandler.GetMyCompetitions).Methods("GET")
	protected.HandleFunc("/competitions/{competitionID}", competitionHandler.GetCompetition).Methods("GET")
	protected.HandleFunc("/competitions/{competitionID}", competitionHandler.UpdateCompetition).Methods("PUT")
	protected.HandleFunc("/competitions/{competitionID}/publish", competitionHandler.PublishCompetition).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/cancel", competitionHandler.CancelCompetition).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/end", competitionHandler.EndCompetition).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/join", competitionHandler.JoinCompetition).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/withdraw", competitionHandler.WithdrawEntry).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/entry", competitionHandler.GetMyEntry).Methods("GET")
	protected.HandleFunc("/competitions/{competitionID}/entries/{userID}/approve", competitionHandler.ApproveEntry).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/prize/claim", competitionHandler.ClaimPrize).Methods("POST")
	protected.HandleFunc("/competitions/{competitionID}/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/competitions/{competitionID}/leaderboard/me", leaderboardHandler.GetMyStanding).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
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
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
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

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
