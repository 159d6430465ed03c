package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/task-management/internal/auth"
	authpostgres "github.com/frahmantamala/task-management/internal/auth/postgres"
	"github.com/frahmantamala/task-management/internal/core/events"
	"github.com/frahmantamala/task-management/internal/organization"
	orgpostgres "github.com/frahmantamala/task-management/internal/organization/postgres"
	"github.com/frahmantamala/task-management/pkg/logger"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a demo user and organization for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init("")
		lg := logger.L()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		ctx := context.Background()

		tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.SessionTTL, cfg.Security.OAuthStateTTL)
		authRepo := authpostgres.NewAuthRepository(gormDB)
		authService := auth.NewService(authRepo, tokens, nil, cfg.Security.BCryptCost, lg)

		demoEmail := "demo@mail.com"
		var demoUserID int64
		if existing, err := authRepo.GetUserByEmail(ctx, demoEmail); err == nil && existing != nil {
			fmt.Println("demo user already exists:", demoEmail)
			demoUserID = existing.ID
		} else {
			demoUserID, err = authService.Register(ctx, auth.RegisterDTO{
				Email:    demoEmail,
				Password: "password123",
			})
			if err != nil {
				log.Fatalf("failed to seed demo user: %v", err)
			}
			fmt.Println("Seeded demo user:", demoEmail)
		}

		orgRepo := orgpostgres.NewOrganizationRepository(gormDB)
		orgService := organization.NewService(orgRepo, authRepo, tokens, events.NewEventBus(lg), lg)

		result, err := orgService.CreateOrganization(ctx, organization.CreateOrganizationDTO{
			UserID: demoUserID,
			Name:   "Demo Organization",
		})
		if err != nil {
			fmt.Println("demo organization not created:", err)
			return
		}

		fmt.Println("Seeded demo organization, id:", result.OrganizationID)
	},
}
