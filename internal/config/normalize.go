package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeTranscoder()
	c.normalizeFetch()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = defaultCatalogPath
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	if value, ok := lookupEnv("HLSINGEST_BUCKET"); ok {
		if strings.TrimSpace(c.Storage.Bucket) == "" || c.Storage.Bucket == defaultBucket {
			c.Storage.Bucket = value
		}
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if value, ok := lookupEnv("AWS_REGION"); ok {
		if strings.TrimSpace(c.Storage.Region) == "" || c.Storage.Region == defaultRegion {
			c.Storage.Region = value
		}
	}
	if c.Storage.AccessKeyID == "" {
		if value, ok := lookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKeyID = value
		}
	}
	if c.Storage.SecretAccessKey == "" {
		if value, ok := lookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretAccessKey = value
		}
	}
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")

	if strings.TrimSpace(c.Storage.FilesystemDir) == "" {
		c.Storage.FilesystemDir = defaultFilesystemDir
	}
	var err error
	if c.Storage.FilesystemDir, err = expandPath(c.Storage.FilesystemDir); err != nil {
		return fmt.Errorf("storage.filesystem_dir: %w", err)
	}

	if c.Storage.PublicBaseURL == "" {
		if value, ok := lookupEnv("CLOUDFRONT_URL"); ok {
			c.Storage.PublicBaseURL = value
		}
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = c.derivedPublicBaseURL()
	}
	return nil
}

// derivedPublicBaseURL points at the bucket itself when no CDN base is configured.
func (c *Config) derivedPublicBaseURL() string {
	switch c.Storage.Backend {
	case StorageFilesystem:
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(c.Storage.FilesystemDir, c.Storage.Bucket))}
		return u.String()
	default:
		if c.Storage.Bucket == "" {
			return ""
		}
		if c.Storage.Endpoint != "" {
			return c.Storage.Endpoint + "/" + c.Storage.Bucket
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Storage.Bucket, c.Storage.Region)
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	if c.Catalog.Backend == "" {
		c.Catalog.Backend = defaultCatalogBackend
	}
	if value, ok := lookupEnv("MONGO_URI"); ok {
		if strings.TrimSpace(c.Catalog.MongoURI) == "" || c.Catalog.MongoURI == defaultMongoURI {
			c.Catalog.MongoURI = value
		}
	}
	c.Catalog.MongoURI = strings.TrimSpace(c.Catalog.MongoURI)
	if strings.TrimSpace(c.Catalog.Database) == "" {
		c.Catalog.Database = defaultMongoDatabase
	}
	if strings.TrimSpace(c.Catalog.SourceCollection) == "" {
		c.Catalog.SourceCollection = defaultSourceCollection
	}
	if strings.TrimSpace(c.Catalog.RecordsCollection) == "" {
		c.Catalog.RecordsCollection = defaultRecordsCollection
	}
	if strings.TrimSpace(c.Catalog.ClaimsCollection) == "" {
		c.Catalog.ClaimsCollection = defaultClaimsCollection
	}
	if c.Catalog.ConnectTimeout <= 0 {
		c.Catalog.ConnectTimeout = defaultMongoConnectSecs
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Transcoder.SegmentSeconds <= 0 {
		c.Transcoder.SegmentSeconds = defaultSegmentSeconds
	}
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ClaimTTLSeconds <= 0 {
		c.Workflow.ClaimTTLSeconds = defaultClaimTTL
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
