package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"hlsingest/internal/services"
)

// Validate ensures the configuration is usable. Failures wrap
// services.ErrConfiguration.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateStorage,
		c.validateCatalog,
		c.validateTranscoder,
		c.validateWorkflow,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageS3, StorageFilesystem:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageS3, StorageFilesystem, c.Storage.Backend)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required. Set HLSINGEST_BUCKET or edit the config file")
	}
	if c.Storage.Backend == StorageS3 && c.Storage.Region == "" {
		return errors.New("storage.region is required for the s3 backend. Set AWS_REGION or edit the config file")
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		return errors.New("storage.access_key_id and storage.secret_access_key must be set together")
	}
	if c.Storage.Endpoint != "" {
		if err := validateHTTPURL(c.Storage.Endpoint); err != nil {
			return fmt.Errorf("storage.endpoint: %w", err)
		}
	}
	if c.Storage.PublicBaseURL == "" {
		return errors.New("storage.public_base_url could not be determined. Set CLOUDFRONT_URL or edit the config file")
	}
	parsed, err := url.Parse(c.Storage.PublicBaseURL)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("storage.public_base_url %q must be an absolute URL", c.Storage.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case CatalogSQLite:
		if c.Paths.CatalogPath == "" {
			return errors.New("paths.catalog_path must be set for the sqlite catalog")
		}
	case CatalogMongoDB:
		if c.Catalog.MongoURI == "" {
			return errors.New("catalog.mongo_uri is required for the mongodb catalog. Set MONGO_URI or edit the config file")
		}
		if !strings.HasPrefix(c.Catalog.MongoURI, "mongodb://") && !strings.HasPrefix(c.Catalog.MongoURI, "mongodb+srv://") {
			return fmt.Errorf("catalog.mongo_uri %q must use the mongodb:// or mongodb+srv:// scheme", c.Catalog.MongoURI)
		}
	default:
		return fmt.Errorf("catalog.backend must be %q or %q, got %q", CatalogSQLite, CatalogMongoDB, c.Catalog.Backend)
	}
	return nil
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.TimeoutSeconds < 0 {
		return errors.New("transcoder.timeout_seconds must be >= 0")
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("fetch.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.UploadTimeoutSeconds < 0 {
		return errors.New("workflow.upload_timeout_seconds must be >= 0")
	}
	if c.Workflow.HeartbeatInterval >= c.Workflow.ClaimTTLSeconds {
		return errors.New("workflow.heartbeat_interval_seconds must be less than workflow.claim_ttl_seconds")
	}
	if c.Workflow.MinFreeMiB < 0 {
		return errors.New("workflow.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q is missing a host", raw)
	}
	return nil
}
