package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server and the maintenance CLI.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Contentful ContentfulConfig `yaml:"contentful"`
	TMDB       TMDBConfig       `yaml:"tmdb"`
	Backup     BackupConfig     `yaml:"backup"`
	Lock       LockConfig       `yaml:"lock"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Stats      StatsConfig      `yaml:"stats"`
	CDN        CDNConfig        `yaml:"cdn"`
	Posts      PostsConfig      `yaml:"posts"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ContentfulConfig locates the watch list inside the CMS.
type ContentfulConfig struct {
	ManagementToken string `yaml:"management_token"`
	SpaceID         string `yaml:"space_id"`
	Environment     string `yaml:"environment"`
	EntryID         string `yaml:"entry_id"`
	FieldID         string `yaml:"field_id"`
	Locale          string `yaml:"locale"`
	BaseURL         string `yaml:"base_url"`
	PostContentType string `yaml:"post_content_type"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Timeout returns the HTTP client timeout.
func (c ContentfulConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TMDBConfig holds The Movie Database API settings.
type TMDBConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	// DelayMillis is the pause between per-item enrichment calls.
	DelayMillis int `yaml:"delay_millis"`
}

// Timeout returns the HTTP client timeout.
func (c TMDBConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay returns the pause between enrichment calls.
func (c TMDBConfig) Delay() time.Duration {
	return time.Duration(c.DelayMillis) * time.Millisecond
}

// BackupConfig holds where snapshots are written. S3Bucket and
// DynamoDBTable are optional off-site mirrors.
type BackupConfig struct {
	Dir           string `yaml:"dir"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain
	SampleSize    int    `yaml:"sample_size"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c BackupConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LockConfig selects the backend guarding read-modify-write cycles.
// With neither RedisURL nor DatabaseURL set, locking is process-local.
type LockConfig struct {
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	Key         string `yaml:"key"`
	TTLSeconds  int    `yaml:"ttl_seconds"`
}

// TTL returns the lock lifetime.
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// CleanupConfig lists the per-record fields the cleanup operation strips.
type CleanupConfig struct {
	Fields []string `yaml:"fields"`
}

// StatsConfig overrides the built-in country attribution tables.
type StatsConfig struct {
	AmbiguousLanguages []string          `yaml:"ambiguous_languages"`
	LanguageCountries  map[string]string `yaml:"language_countries"`
}

// CDNConfig holds the CloudFront distribution invalidated on republish.
type CDNConfig struct {
	DistributionID string   `yaml:"distribution_id"`
	Paths          []string `yaml:"paths"`
	AWSRegion      string   `yaml:"aws_region"`
}

// PostsConfig locates the static blog post sources.
type PostsConfig struct {
	Dir    string `yaml:"dir"`
	Output string `yaml:"output"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level         string `yaml:"level"`
	RedactSecrets *bool  `yaml:"redact_secrets"`
}

// Redact reports whether secret redaction is on. Defaults to true.
func (c LogConfig) Redact() bool {
	return c.RedactSecrets == nil || *c.RedactSecrets
}

// DefaultCleanupFields are the TMDB payload fields the blog never reads.
// original_language is deliberately absent: country attribution needs it.
var DefaultCleanupFields = []string{
	"backdrop_path",
	"genre_ids",
	"original_title",
	"original_name",
	"overview",
	"popularity",
	"video",
	"vote_average",
	"vote_count",
	"adult",
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Contentful.Environment == "" {
		cfg.Contentful.Environment = "master"
	}
	if cfg.Contentful.EntryID == "" {
		cfg.Contentful.EntryID = "movieList"
	}
	if cfg.Contentful.FieldID == "" {
		cfg.Contentful.FieldID = "contents"
	}
	if cfg.Contentful.Locale == "" {
		cfg.Contentful.Locale = "en-US"
	}
	if cfg.Contentful.BaseURL == "" {
		cfg.Contentful.BaseURL = "https://api.contentful.com"
	}
	if cfg.Contentful.PostContentType == "" {
		cfg.Contentful.PostContentType = "post"
	}
	if cfg.Contentful.TimeoutSeconds == 0 {
		cfg.Contentful.TimeoutSeconds = 30
	}
	if cfg.Contentful.MaxRetries == 0 {
		cfg.Contentful.MaxRetries = 3
	}
	if cfg.TMDB.BaseURL == "" {
		cfg.TMDB.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.TMDB.TimeoutSeconds == 0 {
		cfg.TMDB.TimeoutSeconds = 15
	}
	if cfg.TMDB.MaxRetries == 0 {
		cfg.TMDB.MaxRetries = 3
	}
	if cfg.TMDB.DelayMillis == 0 {
		cfg.TMDB.DelayMillis = 200
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "data"
	}
	if cfg.Backup.S3Prefix == "" {
		cfg.Backup.S3Prefix = "watchlog/backups/"
	}
	if cfg.Backup.AWSRegion == "" {
		cfg.Backup.AWSRegion = "us-east-1"
	}
	if cfg.Backup.SampleSize == 0 {
		cfg.Backup.SampleSize = 5
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "watchlist"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 600
	}
	if cfg.Cleanup.Fields == nil {
		cfg.Cleanup.Fields = append([]string(nil), DefaultCleanupFields...)
	}
	if len(cfg.CDN.Paths) == 0 {
		cfg.CDN.Paths = []string{"/api/*"}
	}
	if cfg.CDN.AWSRegion == "" {
		cfg.CDN.AWSRegion = cfg.Backup.AWSRegion
	}
	if cfg.Posts.Dir == "" {
		cfg.Posts.Dir = "content/posts"
	}
	if cfg.Posts.Output == "" {
		cfg.Posts.Output = "content/posts.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first. A missing YAML file is not an
// error: the tools can run from environment variables alone.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		cfg.applyDefaults()
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("CONTENTFUL_MANAGEMENT_TOKEN"); v != "" {
		cfg.Contentful.ManagementToken = v
	}
	if v := os.Getenv("CONTENTFUL_SPACE_ID"); v != "" {
		cfg.Contentful.SpaceID = v
	}
	if v := os.Getenv("CONTENTFUL_ENVIRONMENT"); v != "" {
		cfg.Contentful.Environment = v
	}
	if v := os.Getenv("CONTENTFUL_ENTRY_ID"); v != "" {
		cfg.Contentful.EntryID = v
	}
	if v := os.Getenv("CONTENTFUL_FIELD_ID"); v != "" {
		cfg.Contentful.FieldID = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		cfg.TMDB.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Lock.RedisURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Lock.DatabaseURL = v
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
	if v := os.Getenv("BACKUP_S3_BUCKET"); v != "" {
		cfg.Backup.S3Bucket = v
	}
	if v := os.Getenv("BACKUP_DYNAMODB_TABLE"); v != "" {
		cfg.Backup.DynamoDBTable = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Backup.AWSRegion = v
		cfg.CDN.AWSRegion = v
	}
	if v := os.Getenv("CLOUDFRONT_DISTRIBUTION_ID"); v != "" {
		cfg.CDN.DistributionID = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate reports the first missing setting needed to reach the CMS.
func (c ContentfulConfig) Validate() error {
	switch {
	case c.ManagementToken == "":
		return errors.New("contentful: management token is not set (CONTENTFUL_MANAGEMENT_TOKEN)")
	case c.SpaceID == "":
		return errors.New("contentful: space id is not set (CONTENTFUL_SPACE_ID)")
	}
	return nil
}
