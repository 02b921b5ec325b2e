package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/cache"
	"blogcristao/internal/config"
	"blogcristao/internal/database"
	"blogcristao/internal/feed"
	"blogcristao/internal/handler"
	"blogcristao/internal/live"
	"blogcristao/internal/observability"
	"blogcristao/internal/queue"
	"blogcristao/internal/redis"
	"blogcristao/internal/repository"
	"blogcristao/internal/service"
	"blogcristao/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flush := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	// 3. Connect to Redis (event stream, page cache, live broker)
	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	publisher := queue.NewPublisher(rdb.Client)
	pageCache := cache.NewPageCache(rdb.Client, cfg.FeedCacheTTL)
	broker := live.NewBroker(rdb.Client)

	// 4. Identity provider
	identity, err := newIdentityProvider(ctx, cfg)
	if err != nil {
		return err
	}

	// 5. Repositories, services and handlers
	handlers, sessions := buildHandlers(ctx, cfg, db, publisher, pageCache, broker, identity)

	// 6. Background workers refreshing caches and live feeds
	manager := worker.NewManager(queue.NewConsumer(rdb.Client), worker.NewHandler(pageCache, broker), worker.ManagerConfig{
		WorkerCount: cfg.WorkerCount,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// 7. Setup Server
	router := NewRouter(RouterConfig{
		SessionHandler: handlers.session,
		PostHandler:    handlers.post,
		CommentHandler: handlers.comment,
		MediaHandler:   handlers.media,
		UserHandler:    handlers.user,
		LiveHandler:    handlers.live,
		CommentLive:    handlers.commentLive,
		Sessions:       sessions,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s env=%s auth=%s", cfg.ServerPort, cfg.AppEnv, cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

type handlerSet struct {
	session *handler.SessionHandler
	post    *handler.PostHandler
	comment *handler.CommentHandler
	media   *handler.MediaHandler
	user    *handler.UserHandler
	live    *handler.LiveHandler

	commentLive *handler.CommentLiveHandler
}

func buildHandlers(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	publisher queue.Publisher,
	pageCache cache.PageCache,
	broker *live.Broker,
	identity service.IdentityProvider,
) (*handlerSet, *service.SessionService) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	assembler := feed.NewAssembler(postRepo, userRepo, feed.WithLikeChecker(likeRepo))

	userService := service.NewUserService(userRepo)
	sessionService := service.NewSessionService(identity, userService, cfg.SessionMaxAge)
	likeService := service.NewLikeService(likeRepo, db, publisher)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo, likeRepo, publisher, db)

	postService := service.NewPostService(postRepo, userRepo, likeRepo, assembler, publisher, db)
	postService.SetPageCache(pageCache)
	postService.SetPageSize(cfg.FeedPageSize)

	// Without R2 credentials uploads answer 503 and deletes of posts with images fail.
	var uploader handler.Uploader
	if cfg.R2AccountID != "" && cfg.R2BucketName != "" {
		host, err := service.NewR2ImageHost(ctx, cfg)
		if err != nil {
			log.Printf("[WARN] Image hosting disabled: %v", err)
		} else {
			mediaService := service.NewMediaService(host, cfg.MediaFolder)
			postService.SetImageHost(mediaService)
			uploader = mediaService
		}
	} else {
		log.Println("[WARN] R2 is not configured, image uploads are disabled")
	}

	return &handlerSet{
		session: handler.NewSessionHandler(sessionService, cfg.IsProduction()),
		post:    handler.NewPostHandler(postService, likeService, cfg.PublicBaseURL),
		comment: handler.NewCommentHandler(commentService, likeService),
		media:   handler.NewMediaHandler(uploader),
		user:    handler.NewUserHandler(userService),
		live:    handler.NewLiveHandler(assembler, broker, postService.PageSize(), cfg.LoadMoreTimeout),

		commentLive: handler.NewCommentLiveHandler(commentService, broker),
	}, sessionService
}

func newIdentityProvider(ctx context.Context, cfg *config.Config) (service.IdentityProvider, error) {
	switch cfg.AuthMode {
	case config.AuthModeLocal:
		if cfg.IsProduction() {
			log.Println("[WARN] Local identity provider in use outside development")
		}
		identity, err := service.NewLocalIdentity(cfg.SessionSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to init local identity: %w", err)
		}
		return identity, nil
	default:
		identity, err := service.NewFirebaseIdentity(ctx, cfg.FirebaseCredentialsFile, cfg.FirebaseProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to init firebase: %w", err)
		}
		return identity, nil
	}
}
