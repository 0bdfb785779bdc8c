package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/config"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/services"
)

const pageSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	undo, err := config.InitLogger(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer undo()
	log := zap.S().Named("reindex")
	if !cfg.DotEnvLoaded {
		log.Info("No .env file found. Using environment and default values.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting talent index rebuild...")

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	repo := repositories.NewCVRepository(db)

	index, err := services.BuildTalentIndex(ctx, services.TalentIndexConfig{
		QdrantURL:      cfg.Qdrant.URL,
		QdrantAPIKey:   cfg.Qdrant.APIKey,
		Collection:     cfg.Qdrant.Collection,
		GeminiAPIKey:   cfg.LLM.GeminiAPIKey,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize talent index: %v", err)
	}
	if !index.Enabled() {
		log.Fatal("❌ Talent search is not configured, set QDRANT_URL and GEMINI_API_KEY")
	}

	successCount := 0
	failCount := 0
	after := uuid.Nil

	for {
		cvs, err := repo.ListCompleted(ctx, after, pageSize)
		if err != nil {
			log.Fatalf("❌ Failed to list processed CVs: %v", err)
		}
		if len(cvs) == 0 {
			break
		}

		for _, cv := range cvs {
			if err := index.IndexCV(ctx, cv.ID, cv.OwnerID, cv.StructuredCV); err != nil {
				log.Warnw("   ❌ Failed to index CV", "cv_id", cv.ID, "error", err)
				failCount++
				continue
			}
			successCount++
		}
		log.Infof("   📊 Progress: %d indexed, %d failed", successCount, failCount)

		after = cvs[len(cvs)-1].ID
		if ctx.Err() != nil {
			log.Warn("⚠️  Interrupted, stopping early")
			break
		}
	}

	log.Info(strings.Repeat("=", 60))
	log.Infof("📊 Reindex Summary:")
	log.Infof("   ✅ Successful: %d CVs", successCount)
	log.Infof("   ❌ Failed: %d CVs", failCount)
	log.Info(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Warn("⚠️  Some CVs failed to index. Please check the logs above.")
		undo()
		os.Exit(1)
	}
	log.Info("✅ All CVs indexed successfully!")
}
