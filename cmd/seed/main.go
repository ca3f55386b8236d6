// Command seed loads the sample dataset from _data/ into the store, or
// wipes it. Meant for local development and demos, never production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/domain/review"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/observability"
	"github.com/openlearnhq/campdir/internal/security"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

var collections = []string{"bootcamps", "courses", "reviews", "users"}

func main() {
	doImport := flag.Bool("import", false, "load the sample data")
	doDestroy := flag.Bool("destroy", false, "wipe all data")
	dataDir := flag.String("data", "_data", "directory holding the sample JSON files")
	flag.Parse()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if *doImport == *doDestroy {
		log.Error("pass exactly one of -import or -destroy")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB, nil)

	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}

	defer store.Close(context.Background())

	if *doDestroy {
		if err := store.DropData(ctx, collections...); err != nil {
			log.Error("destroy failed", "err", err)
			os.Exit(1)
		}

		log.Info("data destroyed", "collections", collections)
		return
	}

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Error("index build failed", "err", err)
		os.Exit(1)
	}

	if err := importAll(ctx, store, *dataDir); err != nil {
		log.Error("import failed", "err", err)
		os.Exit(1)
	}

	if err := recomputeRatings(ctx, store); err != nil {
		log.Error("rating recompute failed", "err", err)
		os.Exit(1)
	}

	log.Info("data imported", "collections", collections)
}

// The JSON fixtures carry plain hex ids and, for users, plaintext
// passwords. Each loader converts to the stored shape.

type seedBootcamp struct {
	ID          string             `json:"_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Website     string             `json:"website"`
	Address     string             `json:"address"`
	Location    *bootcamp.Location `json:"location"`
	User        string             `json:"user"`
}

type seedCourse struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Weeks       int     `json:"weeks"`
	Tuition     float64 `json:"tuition"`
	Bootcamp    string  `json:"bootcamp"`
	User        string  `json:"user"`
}

type seedReview struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Bootcamp string `json:"bootcamp"`
	User     string `json:"user"`
}

type seedUser struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func importAll(ctx context.Context, store *mongodb.Store, dataDir string) error {
	now := time.Now().UTC()

	var users []seedUser

	if err := loadJSON(dataDir, "users.json", &users); err != nil {
		return err
	}

	userDocs := make([]interface{}, 0, len(users))

	for _, su := range users {
		id, err := primitive.ObjectIDFromHex(su.ID)
		if err != nil {
			return err
		}

		hash, err := security.HashPassword(su.Password)
		if err != nil {
			return err
		}

		userDocs = append(userDocs, user.User{
			ID:           id,
			Name:         su.Name,
			Email:        su.Email,
			PasswordHash: hash,
			Role:         su.Role,
			CreatedAt:    now,
		})
	}

	if err := store.InsertMany(ctx, "users", userDocs); err != nil {
		return err
	}

	var bootcamps []seedBootcamp

	if err := loadJSON(dataDir, "bootcamps.json", &bootcamps); err != nil {
		return err
	}

	bootcampDocs := make([]interface{}, 0, len(bootcamps))

	for _, sb := range bootcamps {
		id, err := primitive.ObjectIDFromHex(sb.ID)
		if err != nil {
			return err
		}

		owner, err := primitive.ObjectIDFromHex(sb.User)
		if err != nil {
			return err
		}

		bootcampDocs = append(bootcampDocs, bootcamp.Bootcamp{
			ID:          id,
			Name:        sb.Name,
			Description: sb.Description,
			Website:     sb.Website,
			Location:    sb.Location,
			User:        owner,
			CreatedAt:   now,
		})
	}

	if err := store.InsertMany(ctx, "bootcamps", bootcampDocs); err != nil {
		return err
	}

	var courses []seedCourse

	if err := loadJSON(dataDir, "courses.json", &courses); err != nil {
		return err
	}

	courseDocs := make([]interface{}, 0, len(courses))

	for _, sc := range courses {
		id, err := primitive.ObjectIDFromHex(sc.ID)
		if err != nil {
			return err
		}

		bid, err := primitive.ObjectIDFromHex(sc.Bootcamp)
		if err != nil {
			return err
		}

		owner, err := primitive.ObjectIDFromHex(sc.User)
		if err != nil {
			return err
		}

		courseDocs = append(courseDocs, course.Course{
			ID:          id,
			Title:       sc.Title,
			Description: sc.Description,
			Weeks:       sc.Weeks,
			Tuition:     sc.Tuition,
			Bootcamp:    bid,
			User:        owner,
			CreatedAt:   now,
		})
	}

	if err := store.InsertMany(ctx, "courses", courseDocs); err != nil {
		return err
	}

	var reviews []seedReview

	if err := loadJSON(dataDir, "reviews.json", &reviews); err != nil {
		return err
	}

	reviewDocs := make([]interface{}, 0, len(reviews))

	for _, sr := range reviews {
		id, err := primitive.ObjectIDFromHex(sr.ID)
		if err != nil {
			return err
		}

		bid, err := primitive.ObjectIDFromHex(sr.Bootcamp)
		if err != nil {
			return err
		}

		owner, err := primitive.ObjectIDFromHex(sr.User)
		if err != nil {
			return err
		}

		reviewDocs = append(reviewDocs, review.Review{
			ID:        id,
			Title:     sr.Title,
			Text:      sr.Text,
			Rating:    sr.Rating,
			Bootcamp:  bid,
			User:      owner,
			CreatedAt: now,
		})
	}

	return store.InsertMany(ctx, "reviews", reviewDocs)
}

// recomputeRatings brings the denormalized averages in line with the
// seeded reviews, same as the handlers do after each write.
func recomputeRatings(ctx context.Context, store *mongodb.Store) error {
	bootcampsRepo := mongodb.NewBootcampsRepo(store)
	reviewsRepo := mongodb.NewReviewsRepo(store)

	ids, err := bootcampsRepo.AllIDs(ctx)

	if err != nil {
		return err
	}

	for _, id := range ids {
		avg, err := reviewsRepo.AverageRating(ctx, id)

		if err != nil {
			return err
		}

		if err := bootcampsRepo.SetAverageRating(ctx, id, avg); err != nil {
			return err
		}
	}

	return nil
}

func loadJSON(dir, name string, out interface{}) error {
	raw, err := os.ReadFile(filepath.Join(dir, name))

	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}
