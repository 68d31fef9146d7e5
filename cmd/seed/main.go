// seed crea datos de desarrollo: una cuenta parent con password y una
// identidad social google vinculada con tokens cifrados. Idempotente,
// si la cuenta ya existe no toca nada.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/config"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "ruta del config YAML")
	email := flag.String("email", "demo.parent@learningplanner.dev", "email de la cuenta demo")
	password := flag.String("password", "demo-password-123", "password de la cuenta demo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "lp-auth-seed"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.New(ctx, cfg.Storage.DSN)
	if err != nil {
		fatal(fmt.Errorf("postgres: %w", err))
	}
	defer store.Close()

	cipher, err := secretbox.NewFromEnv()
	if err != nil {
		fatal(fmt.Errorf("secretbox: %w", err))
	}

	repos := store.Repos()
	if _, err := repos.Accounts.GetByEmail(ctx, *email); err == nil {
		log.Info("seed account already exists, nothing to do", logger.Email(*email))
		return
	} else if !repository.IsNotFound(err) {
		fatal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatal(err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		acc, err := r.Accounts.Create(ctx, repository.CreateAccountInput{
			Email:           *email,
			PasswordHash:    string(hash),
			Role:            repository.RoleParent,
			DisplayName:     "Demo Parent",
			IsEmailVerified: true,
		})
		if err != nil {
			return err
		}

		accessEnc, err := cipher.Encrypt("seed-access-token")
		if err != nil {
			return err
		}
		refreshEnc, err := cipher.Encrypt("seed-refresh-token")
		if err != nil {
			return err
		}
		expires := time.Now().Add(time.Hour).UTC()
		_, err = r.Links.Create(ctx, repository.CreateSocialLinkInput{
			UserID:                acc.ID,
			Provider:              "google",
			ProviderUserID:        "seed-google-" + acc.ID,
			ProviderEmail:         *email,
			ProviderName:          "Demo Parent",
			AccessTokenEncrypted:  accessEnc,
			RefreshTokenEncrypted: &refreshEnc,
			TokenExpiresAt:        &expires,
		})
		return err
	})
	if err != nil {
		fatal(err)
	}

	log.Info("seed account created", logger.Email(*email), logger.String("provider", "google"))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal:", err)
	os.Exit(1)
}
