// Command seed-account creates a login for local runs. There is no public
// sign-up endpoint.
//
//	go run ./cmd/seed-account -email asha@example.com -password secret -coins 100
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
)

type seedConfig struct {
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	CoinUnit       int64  `env:"COIN_UNIT" envDefault:"20"`
}

func main() {
	email := flag.String("email", "", "login email")
	name := flag.String("name", "", "display name")
	password := flag.String("password", "", "login password")
	coins := flag.Int64("coins", 0, "opening balance")
	flag.Parse()

	logging.Init("seed-account", "info", "development")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fail("failed to read .env", err)
	}
	cfg, err := env.ParseAs[seedConfig]()
	if err != nil {
		fail("failed to load config", err)
	}

	if strings.TrimSpace(*email) == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *coins < 0 || *coins%cfg.CoinUnit != 0 {
		slog.Error("coins must be a non-negative multiple of the coin unit", "coins", *coins, "unit", cfg.CoinUnit)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		fail("failed to migrate", err)
	}
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		fail("failed to connect to database", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fail("failed to hash password", err)
	}

	acct := &domain.Account{
		UserID:       uuid.NewString(),
		Email:        strings.TrimSpace(*email),
		Name:         *name,
		PasswordHash: string(hash),
		Coins:        *coins,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repository.NewAccountRepository(db).Create(ctx, acct); err != nil {
		fail("failed to create account", err)
	}

	slog.Info("account created", "user_id", acct.UserID, "email", acct.Email, "coins", acct.Coins)
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
