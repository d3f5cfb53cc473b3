package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api"
	"github.com/daap14/taskhub/internal/api/handler"
	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/config"
	"github.com/daap14/taskhub/internal/database"
	"github.com/daap14/taskhub/internal/filestore"
	"github.com/daap14/taskhub/internal/notification"
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/task"
	"github.com/daap14/taskhub/internal/team"
	"github.com/daap14/taskhub/internal/user"
)

// serviceBuilder wires one service and returns its router and a function
// releasing its connections.
type serviceBuilder func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error)

var services = map[string]serviceBuilder{
	"user": buildUserService,
	"team": buildTeamService,
	"task": buildTaskService,
}

const connectTimeout = 10 * time.Second

func buildUserService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for the user service")
	}

	if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	db, err := database.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	tokens := auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL())
	users := user.NewService(user.NewRepository(db.Pool()), tokens, cfg.BcryptCost, logger)

	if cfg.BootstrapAdminPassword != "" {
		created, err := users.BootstrapAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("bootstrapping admin: %w", err)
		}
		if created {
			logger.Info("Created bootstrap admin", zap.String("username", cfg.BootstrapAdminUsername))
		}
	}

	router := api.NewUserRouter(api.UserRouterDeps{
		Logger:   logger,
		Version:  cfg.Version,
		Tokens:   tokens,
		Users:    users,
		Resolver: users,
		Health:   map[string]handler.Pinger{"postgres": db},
	})
	return router, db.Close, nil
}

func buildTeamService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	mongo, err := connectMongo(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	repo := team.NewRepository(mongo.Database())
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeMongo(mongo, logger)
		return nil, nil, err
	}

	teams := team.NewService(
		repo,
		peer.NewUserClient(cfg.UserServiceURL, cfg.PeerTimeout, logger),
		peer.NewTaskClient(cfg.TaskServiceURL, cfg.PeerTimeout, logger),
		logger,
	)

	router := api.NewTeamRouter(api.TeamRouterDeps{
		Logger:  logger,
		Version: cfg.Version,
		Tokens:  auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL()),
		Teams:   teams,
		Health:  map[string]handler.Pinger{"mongodb": mongo},
	})
	return router, func() { closeMongo(mongo, logger) }, nil
}

func buildTaskService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	files, err := filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}

	mongo, err := connectMongo(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	taskRepo := task.NewRepository(mongo.Database())
	noteRepo := notification.NewRepository(mongo.Database())
	for _, ensure := range []func(context.Context) error{taskRepo.EnsureIndexes, noteRepo.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			closeMongo(mongo, logger)
			return nil, nil, err
		}
	}

	notes := notification.NewService(noteRepo, logger)
	tasks := task.NewService(
		taskRepo,
		peer.NewUserClient(cfg.UserServiceURL, cfg.PeerTimeout, logger),
		peer.NewTeamClient(cfg.TeamServiceURL, cfg.PeerTimeout, logger),
		notes,
		files,
		logger,
	)

	router := api.NewTaskRouter(api.TaskRouterDeps{
		Logger:        logger,
		Version:       cfg.Version,
		Tokens:        auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL()),
		Tasks:         tasks,
		Notifications: notes,
		Health:        map[string]handler.Pinger{"mongodb": mongo},
	})
	return router, func() { closeMongo(mongo, logger) }, nil
}

func connectMongo(ctx context.Context, cfg *config.Config) (*database.Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return database.NewMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
}

func closeMongo(m *database.Mongo, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		logger.Warn("Closing MongoDB client failed", zap.Error(err))
	}
}

// migrate applies the Postgres migrations when DATABASE_URL is set and
// creates the MongoDB indexes of every collection.
func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			return err
		}
	} else {
		logger.Info("DATABASE_URL not set; skipping Postgres migrations")
	}

	mongo, err := connectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeMongo(mongo, logger)

	db := mongo.Database()
	indexers := map[string]func(context.Context) error{
		"teams":         team.NewRepository(db).EnsureIndexes,
		"tasks":         task.NewRepository(db).EnsureIndexes,
		"notifications": notification.NewRepository(db).EnsureIndexes,
	}
	for name, ensure := range indexers {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
		logger.Info("Indexes ensured", zap.String("collection", name))
	}
	return nil
}
