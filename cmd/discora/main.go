package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bayusegara27/discora-backend/api"
	"github.com/bayusegara27/discora-backend/internal/bot"
	"github.com/bayusegara27/discora-backend/internal/cache"
	"github.com/bayusegara27/discora-backend/internal/config"
	"github.com/bayusegara27/discora-backend/internal/cooldown"
	"github.com/bayusegara27/discora-backend/internal/database"
	"github.com/bayusegara27/discora-backend/internal/health"
	"github.com/bayusegara27/discora-backend/internal/moderation"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bwmarrin/discordgo"
)

const (
	version = "v1.0.0"

	healthFlushInterval = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
)

func main() {
	config.Load()

	log.Printf("Welcome to discora, version: %s", version)

	db, err := database.Open(config.DatabaseType, config.DatabaseURL)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	repo := database.NewRepository(db)
	settingsCache := cache.NewManager(repo)

	var cooldowns cooldown.Store
	if config.RedisAddr != "" {
		rs, err := cooldown.NewRedisStore(config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			log.Fatalf("Error connecting to Redis: %v", err)
		}
		defer rs.Close()
		cooldowns = rs
		log.Printf("Using Redis cooldown store at %s", config.RedisAddr)
	} else {
		ms := cooldown.NewMemoryStore()
		ms.StartSweeper(time.Duration(config.CooldownSweepMinutes) * time.Minute)
		defer ms.Stop()
		cooldowns = ms
	}

	userAgent := "discora-bot/" + version

	youtubeAggregator := health.NewAggregator(repo, "youtube_api")
	youtubeAggregator.Start(healthFlushInterval)
	defer youtubeAggregator.Stop()
	feeds := api.NewYouTubeClient(api.NewClient(userAgent, config.YoutubeRequestsPerSecond, youtubeAggregator))

	var classifier moderation.Classifier
	if config.AIModerationEnabled() {
		geminiAggregator := health.NewAggregator(repo, "gemini_api")
		geminiAggregator.Start(healthFlushInterval)
		defer geminiAggregator.Stop()
		classifier = api.NewGeminiClient(api.NewClient(userAgent, 0, geminiAggregator), config.GeminiAPIKey, config.GeminiModel)
		log.Printf("AI moderation enabled with model %s", config.GeminiModel)
	} else {
		log.Println("GEMINI_API_KEY not set. AI moderation is disabled.")
	}

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}

	b := bot.New(bot.Deps{
		Session:    session,
		Client:     platform.NewDiscord(session),
		Repo:       repo,
		Cache:      settingsCache,
		Cooldowns:  cooldowns,
		Classifier: classifier,
		Feeds:      feeds,
		Workers:    config.JobWorkerCount,
	})

	var healthServer *health.Server
	if config.HealthAddr != "" {
		healthServer = health.NewServer(config.HealthAddr, repo, settingsCache)
		healthServer.Start()
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	// Wait for a SIGINT or SIGTERM signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	log.Println("Shutting down...")
	b.Stop()

	if healthServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := healthServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}
	}
}
