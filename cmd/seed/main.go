// Command seed fills a development database with fake users, posts, comments
// and likes. It writes through the services so counters and excerpts match
// what the API would produce.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"blogcristao/internal/config"
	"blogcristao/internal/database"
	"blogcristao/internal/feed"
	"blogcristao/internal/model"
	"blogcristao/internal/repository"
	"blogcristao/internal/service"
)

type seedOptions struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	LikeChance      float64
}

func main() {
	opts := seedOptions{}
	flag.IntVar(&opts.Users, "users", 5, "number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", 4, "posts per user")
	flag.IntVar(&opts.CommentsPerPost, "comments", 3, "max comments per post")
	flag.Float64Var(&opts.LikeChance, "like-chance", 0.4, "probability that a user likes a post")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed with APP_ENV=%s", cfg.AppEnv)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	gofakeit.Seed(time.Now().UnixNano())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	assembler := feed.NewAssembler(postRepo, userRepo)

	// No publisher: seeded rows reach live feeds on the next cache expiry.
	users := service.NewUserService(userRepo)
	posts := service.NewPostService(postRepo, userRepo, likeRepo, assembler, nil, db)
	comments := service.NewCommentService(commentRepo, postRepo, userRepo, likeRepo, nil, db)
	likes := service.NewLikeService(likeRepo, db, nil)

	var identity *service.LocalIdentity
	if cfg.AuthMode == config.AuthModeLocal {
		identity, err = service.NewLocalIdentity(cfg.SessionSecret)
		if err != nil {
			return err
		}
	}

	var claims []*model.IdentityClaims
	for i := 0; i < opts.Users; i++ {
		c := &model.IdentityClaims{
			UID:     "seed-" + gofakeit.UUID(),
			Name:    gofakeit.Name(),
			Email:   gofakeit.Email(),
			Picture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		}
		if _, err := users.UpsertProfile(ctx, c); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		claims = append(claims, c)

		if identity != nil {
			token, err := identity.IssueIDToken(*c)
			if err != nil {
				return err
			}
			log.Printf("[Seed] user=%s name=%q idToken=%s", c.UID, c.Name, token)
		}
	}

	var postCount, commentCount, likeCount int
	for _, author := range claims {
		for j := 0; j < opts.PostsPerUser; j++ {
			post, err := posts.Create(ctx, author.UID, buildPost(rng))
			if err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			postCount++

			for k := rng.Intn(opts.CommentsPerPost + 1); k > 0; k-- {
				commenter := claims[rng.Intn(len(claims))]
				req := model.CreateCommentRequest{Content: truncate(gofakeit.Sentence(12), model.MaxCommentLength)}
				if _, err := comments.Create(ctx, post.ID, commenter.UID, req); err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				commentCount++
			}

			for _, liker := range claims {
				if rng.Float64() >= opts.LikeChance {
					continue
				}
				if _, err := likes.Toggle(ctx, model.PostTarget(post.ID), liker.UID); err != nil {
					return fmt.Errorf("like post: %w", err)
				}
				likeCount++
			}
		}
	}

	log.Printf("[Seed] Done: users=%d posts=%d comments=%d likes=%d", len(claims), postCount, commentCount, likeCount)
	return nil
}

func buildPost(rng *rand.Rand) model.CreatePostRequest {
	req := model.CreatePostRequest{
		Title:   truncate(gofakeit.Sentence(5), model.MaxTitleLength),
		Content: truncate(gofakeit.Paragraph(1, 3, 12, "\n"), model.MaxContentLength),
	}
	if rng.Intn(2) == 0 {
		seed := gofakeit.UUID()
		req.FeaturedImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/450", seed)
		req.ImagePublicID = model.DefaultMediaFolder + "/seed-" + seed + ".jpg"
	}
	return req
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
