package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"projectcomments/internal/config"
	"projectcomments/internal/database"
	"projectcomments/internal/domain/attachment"
	"projectcomments/internal/domain/comment"
	"projectcomments/internal/domain/resource"
	jwtsvc "projectcomments/internal/pkg/jwt"
)

func main() {
	var (
		username  = flag.String("user", "admin", "username to seed as and issue a token for")
		userID    = flag.Int64("user-id", 1, "user id")
		accountID = flag.Int64("account", 1, "account id")
		typeID    = flag.String("task", "1", "task id to attach sample comments to")
		count     = flag.Int("comments", 3, "sample comments to create")
	)
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, nil)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db, &comment.Comment{}, &resource.Resource{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old sample comments...")
	db.Where("saccount_id = ? AND type = ? AND type_id = ?", *accountID, attachment.TypeTask, *typeID).Delete(&comment.Comment{})

	svc := comment.NewService(comment.NewRepository(db), nil, nil, 0)
	ctx := context.Background()
	now := time.Now()
	for i := 1; i <= *count; i++ {
		c := &comment.Comment{
			Comment:     fmt.Sprintf("Sample comment #%d", i),
			CreatedTime: now.Add(time.Duration(i-*count) * time.Minute),
			CreatedUser: *username,
			SAccountID:  *accountID,
			Type:        attachment.TypeTask,
			TypeID:      *typeID,
		}
		if _, err := svc.SaveWithSession(ctx, c, *username); err != nil {
			log.Fatalf("seed comment %d: %v", i, err)
		}
	}
	log.Printf("Created %d comments on %s %s", *count, attachment.TypeTask, *typeID)

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(*userID, *username, *accountID)
	if err != nil {
		log.Fatal("token:", err)
	}
	fmt.Println(token)
}
