// sice-admin runs maintenance tasks against the SICE database: schema
// migrations, bootstrapping the first administrator and sweeping photo
// files no profile references any more.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/sice-api/internal/repository"
	"github.com/noah-isme/sice-api/internal/service"
	"github.com/noah-isme/sice-api/pkg/config"
	"github.com/noah-isme/sice-api/pkg/database"
	"github.com/noah-isme/sice-api/pkg/logger"
	"github.com/noah-isme/sice-api/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare uploads dir: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	users := service.NewUserService(userRepo, service.NewPasswordHasher(cfg.Security.BcryptCost), nil, logr, nil)
	photos := service.NewProfileService(repository.NewTeacherProfileRepository(db), userRepo, files,
		storage.NewSignedURLSigner(cfg.Uploads.PhotoURLSecret, cfg.Uploads.PhotoURLTTL), nil, nil,
		service.ProfileServiceConfig{MaxPhotoBytes: cfg.Uploads.MaxPhotoBytes}, logr.With(zap.String("component", "sice-admin")))

	stdin := int(os.Stdin.Fd())
	cli := &commandLine{
		migrations: gooseMigrator{db: db},
		users:      users,
		photos:     photos,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(stdin)
		},
		out: os.Stdout,
	}
	return cli.run(ctx, os.Args[1:])
}

type gooseMigrator struct {
	db *sqlx.DB
}

func (m gooseMigrator) Up() error     { return database.MigrateUp(m.db.DB) }
func (m gooseMigrator) Down() error   { return database.MigrateDown(m.db.DB) }
func (m gooseMigrator) Status() error { return database.MigrationStatus(m.db.DB) }
