package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"projectcomments/internal/config"
	"projectcomments/internal/domain/composer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	removed, err := composer.CleanupTempDir(cfg.TempDir, cfg.TempFileTTL, time.Now())
	if err != nil {
		log.Fatalf("upload cleanup failed: %v", err)
	}

	log.Printf("upload cleanup completed: dir=%s ttl=%s removed=%d", cfg.TempDir, cfg.TempFileTTL, removed)
}
