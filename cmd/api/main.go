package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"menu-qa/internal/buckets"
	"menu-qa/internal/config"
	"menu-qa/internal/corpus"
	"menu-qa/internal/database"
	"menu-qa/internal/governance"
	"menu-qa/internal/handlers/chat"
	"menu-qa/internal/llm"
	"menu-qa/internal/middleware"
	"menu-qa/internal/routers"
	"menu-qa/internal/shared"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Optional .env, real environment wins
	_ = godotenv.Load()

	// Flags / ENV Variables
	listenAddr := flag.String("listen-addr", ":80", "HTTP listen address")
	debug := flag.Bool("debug", false, "Debug enabled")
	configPath := flag.String("config", "config.yaml", "YAML tunables file")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	adminAPIKey := flag.String("admin-api-key", "", "Admin api key, admin routes are off when empty")

	openAIKey := flag.String("openai-api-key", "", "OpenAI API key")
	openAIBaseURL := flag.String("openai-base-url", "", "OpenAI compatible base url")
	chatModel := flag.String("chat-model", shared.DefaultChatModel, "Chat model")
	embeddingModel := flag.String("embedding-model", shared.DefaultEmbeddingModel, "Embedding model")

	corpusLocation := flag.String("corpus", "menu.txt", "Corpus file path or gs://bucket/object")
	gcsCredentials := flag.String("gcs-credentials-file", "", "Service account json for gs:// corpora")
	watchCorpus := flag.Bool("watch-corpus", false, "Re-index when the corpus file changes")
	warmCorpus := flag.Bool("warm-corpus", false, "Build the corpus index at startup")

	redisAddr := flag.String("redis-addr", "", "Redis host:port for the shared answer cache")
	dsn := flag.String("dsn", "", "MySQL DSN for the question log")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()
	defer func() {
		_ = log.Sync()
	}()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed loading config %s: %s", *configPath, err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis answer cache tier
	var remote governance.RemoteCache
	var redisClient *redis.Client
	if *redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(rootCtx).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		remote = governance.NewRedisCache(redisClient)
	}

	// Question log
	var questions *buckets.QuestionLog
	var writeDB *sql.DB
	if *dsn != "" {
		writeDB, err = sql.Open("mysql", *dsn)
		if err != nil {
			panic(fmt.Sprintf("failed initializing sqlClient: %s", err))
		}
		if err := writeDB.Ping(); err != nil {
			panic(fmt.Sprintf("failed ping to sql db: %s", err))
		}
		questions = buckets.NewQuestionLog(log, database.NewQuestionStore(writeDB))
	}

	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if writeDB != nil {
			_ = writeDB.Close()
		}
	}()

	provider, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:         *openAIKey,
		BaseURL:        *openAIBaseURL,
		ChatModel:      *chatModel,
		EmbeddingModel: *embeddingModel,
		MaxTokens:      appCfg.Prompt.MaxTokens,
		Temperature:    appCfg.Prompt.Temperature,
		BatchSize:      shared.EmbeddingBatchSize,
	}, log)
	if err != nil {
		panic(err)
	}

	source, closeSource, err := openSource(rootCtx, *corpusLocation, *gcsCredentials)
	if err != nil {
		panic(err)
	}
	defer closeSource()

	markers, err := corpus.CompileMarkers(appCfg.Corpus.Markers)
	if err != nil {
		panic(err)
	}
	indexer := corpus.NewIndexer(source, provider, corpus.IndexerConfig{
		Markers:      markers,
		ChunkChars:   appCfg.Corpus.ChunkChars,
		UnmatchedCap: appCfg.Corpus.UnmatchedCap,
	}, log)

	if *watchCorpus && !corpus.IsGCSURI(*corpusLocation) {
		go func() {
			if err := corpus.WatchFile(rootCtx, *corpusLocation, indexer, log); err != nil {
				log.Errorw("Corpus watcher stopped", "error", err)
			}
		}()
	}
	if *warmCorpus {
		go func() {
			if _, err := indexer.Get(rootCtx); err != nil {
				log.Warnw("Corpus warmup failed, will retry on first question", "error", err)
			}
		}()
	}

	state := governance.NewState(governance.Config{
		RateWindow: appCfg.Rate.Window,
		RateCap:    appCfg.Rate.Cap,
		Spam: governance.SpamConfig{
			MinInterval:  appCfg.Spam.MinInterval,
			TooFastBlock: appCfg.Spam.TooFastBlock,
			Window:       appCfg.Spam.Window,
			Cap:          appCfg.Spam.Cap,
			Block:        appCfg.Spam.Block,
		},
		CacheTTL: appCfg.Cache.TTL,
	}, nil, remote, log)

	chatHandler := chat.NewChatHandler(chat.Options{
		Config:    appCfg,
		State:     state,
		Indexer:   indexer,
		Provider:  provider,
		Questions: questions,
		Log:       log,
	})
	defer chatHandler.ShutDown()

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = shared.DefaultHTTPTimeout
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.RequireBearer(*metricsAPIKey))

	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))

	routers.RegisterChatRoutes(base, chatHandler)
	if *adminAPIKey != "" {
		routers.RegisterAdminRoutes(base, chatHandler, *adminAPIKey)
		log.Info("Admin routes registered")
	}

	go func() {
		log.Infow("Starting server", "addr", *listenAddr, "corpus", source.Name())
		if err := e.Start(*listenAddr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-rootCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
}

func openSource(ctx context.Context, location, credentialsFile string) (corpus.Source, func(), error) {
	if !corpus.IsGCSURI(location) {
		return corpus.NewFileSource(location), func() {}, nil
	}
	src, err := corpus.NewGCSSource(ctx, location, credentialsFile)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { _ = src.Close() }, nil
}
