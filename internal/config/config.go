package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
	CatalogPath  string `toml:"catalog_path"`
}

// Storage contains object store configuration for published artifacts.
type Storage struct {
	// Backend selects the object store: "s3" or "filesystem".
	Backend         string `toml:"backend"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	KeyPrefix       string `toml:"key_prefix"`
	PublicBaseURL   string `toml:"public_base_url"`
	FilesystemDir   string `toml:"filesystem_dir"`
}

// Catalog contains document store configuration.
type Catalog struct {
	// Backend selects the catalog: "sqlite" or "mongodb".
	Backend           string `toml:"backend"`
	MongoURI          string `toml:"mongo_uri"`
	Database          string `toml:"database"`
	SourceCollection  string `toml:"source_collection"`
	RecordsCollection string `toml:"records_collection"`
	ClaimsCollection  string `toml:"claims_collection"`
	ConnectTimeout    int    `toml:"connect_timeout_seconds"`
}

// Transcoder contains the external ffmpeg invocation settings.
type Transcoder struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	SegmentSeconds int    `toml:"segment_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Fetch contains remote download settings.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Workflow contains orchestration settings.
type Workflow struct {
	Workers                int   `toml:"workers"`
	UploadTimeoutSeconds   int   `toml:"upload_timeout_seconds"`
	ClaimTTLSeconds        int   `toml:"claim_ttl_seconds"`
	HeartbeatInterval      int   `toml:"heartbeat_interval_seconds"`
	KeepMetadata           bool  `toml:"keep_metadata"`
	KeepOutput             bool  `toml:"keep_output"`
	TimestampWorkspaces    bool  `toml:"timestamp_workspaces"`
	DisambiguateCollisions bool  `toml:"disambiguate_collisions"`
	MinFreeMiB             int64 `toml:"min_free_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for hlsingest.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, log directory, SQLite catalog location
//   - Storage: object store backend, bucket, and public URL base
//   - Catalog: document store backend and collection names
//   - Transcoder: ffmpeg binary and HLS segment profile
//   - Fetch: download timeout and user agent
//   - Workflow: worker count, claims, cleanup policy
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Storage    Storage    `toml:"storage"`
	Catalog    Catalog    `toml:"catalog"`
	Transcoder Transcoder `toml:"transcoder"`
	Fetch      Fetch      `toml:"fetch"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hlsingest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hlsingest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkspaceDir, c.Paths.LogDir}
	if c.Catalog.Backend == CatalogSQLite {
		dirs = append(dirs, filepath.Dir(c.Paths.CatalogPath))
	}
	if c.Storage.Backend == StorageFilesystem {
		dirs = append(dirs, c.Storage.FilesystemDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FetchTimeout returns the per-item fetch deadline, or zero when unbounded.
func (c *Config) FetchTimeout() time.Duration {
	return seconds(c.Fetch.TimeoutSeconds)
}

// TranscodeTimeout returns the per-item transcode deadline, or zero when unbounded.
func (c *Config) TranscodeTimeout() time.Duration {
	return seconds(c.Transcoder.TimeoutSeconds)
}

// UploadTimeout returns the per-item upload deadline, or zero when unbounded.
func (c *Config) UploadTimeout() time.Duration {
	return seconds(c.Workflow.UploadTimeoutSeconds)
}

// ClaimTTL returns how long an identity claim stays valid without a refresh.
func (c *Config) ClaimTTL() time.Duration {
	return seconds(c.Workflow.ClaimTTLSeconds)
}

// HeartbeatInterval returns the claim refresh interval.
func (c *Config) HeartbeatInterval() time.Duration {
	return seconds(c.Workflow.HeartbeatInterval)
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "hlsingest.lock")
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
