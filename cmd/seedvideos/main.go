package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/felixvaughn/themachine-backend/internal/db"
	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/services"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

// seedvideos loads a scored catalog file into Postgres. Rows are keyed by
// youtube id, so re-running with an extended file only adds the new ones.
//
//	seedvideos -file catalog.json
func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "path to a JSON array of videos")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *file == "" {
		log.Error("Missing -file argument")
		os.Exit(1)
	}
	if os.Getenv("POSTGRES_HOST") == "" {
		log.Error("Seeding targets the live database; set POSTGRES_* first")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Error("Failed to read catalog file", "file", *file, "error", err)
		os.Exit(1)
	}
	var videos []*types.Video
	if err := json.Unmarshal(raw, &videos); err != nil {
		log.Error("Failed to parse catalog file", "error", err)
		os.Exit(1)
	}
	if len(videos) == 0 {
		log.Error("Catalog file is empty")
		os.Exit(1)
	}
	for i, v := range videos {
		if v.YoutubeID == "" {
			log.Error("Catalog entry missing youtube_id", "index", i)
			os.Exit(1)
		}
	}

	dbService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gdb := dbService.DB()

	videoRepo := repos.NewVideoRepo(gdb, log)
	videoService := services.NewVideoService(gdb, log, videoRepo)
	added, err := videoService.SeedCatalog(context.Background(), videos)
	if err != nil {
		log.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d new videos from %s\n", added, *file)
}
