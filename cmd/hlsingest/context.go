package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hlsingest/internal/catalog"
	"hlsingest/internal/catalog/mongostore"
	"hlsingest/internal/config"
	"hlsingest/internal/logging"
	"hlsingest/internal/objectstore"
	"hlsingest/internal/objectstore/s3store"
)

const defaultEnvFile = ".env"

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables already set.
// A missing default file is not an error; a missing explicit one is.
func (c *commandContext) loadEnvFile() error {
	path := defaultEnvFile
	if c.envFileFlag != nil {
		path = strings.TrimSpace(*c.envFileFlag)
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openCatalog opens the configured catalog backend.
func openCatalog(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	switch cfg.Catalog.Backend {
	case config.CatalogMongoDB:
		store, err := mongostore.Open(ctx, mongostore.Options{
			URI:               cfg.Catalog.MongoURI,
			Database:          cfg.Catalog.Database,
			SourceCollection:  cfg.Catalog.SourceCollection,
			RecordsCollection: cfg.Catalog.RecordsCollection,
			ClaimsCollection:  cfg.Catalog.ClaimsCollection,
			ConnectTimeout:    seconds(cfg.Catalog.ConnectTimeout),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := catalog.OpenSQLite(cfg.Paths.CatalogPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// openObjectStore builds the configured object store.
func openObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageFilesystem:
		return objectstore.NewFilesystem(cfg.Storage.FilesystemDir), nil
	default:
		store, err := s3store.New(ctx, s3store.Config{
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
