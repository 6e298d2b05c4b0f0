package main

import (
	"context"
	"errors"
	"log"
	"time"

	"gamedict/internal/config"
	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// defaultGames is the starter catalog an empty glossary ships with
var defaultGames = []struct {
	Name string
	Icon string
}{
	{"Street Fighter 6", "sf6.png"},
	{"Tekken 8", "tekken8.png"},
	{"Guilty Gear Strive", "ggst.png"},
	{"Mortal Kombat 1", "mk1.png"},
	{"Super Smash Bros. Ultimate", "ssbu.png"},
	{"Dragon Ball FighterZ", "dbfz.png"},
}

func main() {
	log.Println("🌱 Starting seeder for the gaming glossary...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Admin.Password == "" {
		log.Fatal("ADMIN_PASSWORD must be set to seed the admin account")
	}

	// Initialize PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	postgresRepo := repository.NewPostgresRepository(db)
	defer postgresRepo.Close()

	// Run migrations
	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	accounts := service.NewAccountService(postgresRepo, nil, bcrypt.DefaultCost)
	admin, created, err := accounts.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if created {
		log.Printf("✓ Created admin account %q", admin.Username)
	} else {
		log.Printf("✓ Admin account %q already present", admin.Username)
	}

	actor := models.ActorOf(admin)
	games := service.NewGameService(postgresRepo, nil)
	added := 0
	for _, g := range defaultGames {
		_, err := games.Create(ctx, &actor, service.GameInput{Name: g.Name, Icon: g.Icon})
		switch {
		case err == nil:
			added++
		case errors.Is(err, service.ErrConflict):
			// already supported
		default:
			log.Fatalf("Failed to seed game %q: %v", g.Name, err)
		}
	}

	log.Printf("✅ Seeding complete: %d of %d default games added", added, len(defaultGames))
}
