package config

const (
	defaultWorkspaceDir      = "~/.local/share/hlsingest/workspaces"
	defaultLogDir            = "~/.local/share/hlsingest/logs"
	defaultCatalogPath       = "~/.local/share/hlsingest/catalog.db"
	defaultFilesystemDir     = "~/.local/share/hlsingest/objects"
	defaultStorageBackend    = StorageS3
	defaultBucket            = "hlsingest"
	defaultRegion            = "us-east-1"
	defaultCatalogBackend    = CatalogSQLite
	defaultMongoURI          = "mongodb://localhost:27017"
	defaultMongoDatabase     = "hlsingest"
	defaultSourceCollection  = "processedredgifs"
	defaultRecordsCollection = "videos"
	defaultClaimsCollection  = "claims"
	defaultMongoConnectSecs  = 10
	defaultFFmpegBinary      = "ffmpeg"
	defaultSegmentSeconds    = 10
	defaultTranscodeTimeout  = 1800
	defaultFetchTimeout      = 600
	defaultUserAgent         = "hlsingest/dev"
	defaultWorkers           = 1
	defaultUploadTimeout     = 900
	defaultClaimTTL          = 300
	defaultHeartbeatInterval = 60
	defaultMinFreeMiB        = 512
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Storage backends.
const (
	StorageS3         = "s3"
	StorageFilesystem = "filesystem"
)

// Catalog backends.
const (
	CatalogSQLite  = "sqlite"
	CatalogMongoDB = "mongodb"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			CatalogPath:  defaultCatalogPath,
		},
		Storage: Storage{
			Backend:       defaultStorageBackend,
			Bucket:        defaultBucket,
			Region:        defaultRegion,
			FilesystemDir: defaultFilesystemDir,
		},
		Catalog: Catalog{
			Backend:           defaultCatalogBackend,
			MongoURI:          defaultMongoURI,
			Database:          defaultMongoDatabase,
			SourceCollection:  defaultSourceCollection,
			RecordsCollection: defaultRecordsCollection,
			ClaimsCollection:  defaultClaimsCollection,
			ConnectTimeout:    defaultMongoConnectSecs,
		},
		Transcoder: Transcoder{
			FFmpegBinary:   defaultFFmpegBinary,
			SegmentSeconds: defaultSegmentSeconds,
			TimeoutSeconds: defaultTranscodeTimeout,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
			UserAgent:      defaultUserAgent,
		},
		Workflow: Workflow{
			Workers:                defaultWorkers,
			UploadTimeoutSeconds:   defaultUploadTimeout,
			ClaimTTLSeconds:        defaultClaimTTL,
			HeartbeatInterval:      defaultHeartbeatInterval,
			DisambiguateCollisions: true,
			MinFreeMiB:             defaultMinFreeMiB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
