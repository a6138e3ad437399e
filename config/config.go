// Package config loads application settings from a YAML file and
// PDFREPORT_* environment variables.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/imageload"
	"github.com/lvillar/pdfreport/objecturl"
)

// EnvPrefix prefixes environment overrides, e.g. PDFREPORT_SERVER_ADDR.
const EnvPrefix = "PDFREPORT"

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Render RenderConfig `mapstructure:"render"`
	Images ImageConfig  `mapstructure:"images"`
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

type MarginConfig struct {
	Top    float64 `mapstructure:"top"`
	Right  float64 `mapstructure:"right"`
	Bottom float64 `mapstructure:"bottom"`
	Left   float64 `mapstructure:"left"`
}

type RenderConfig struct {
	PageSize            string       `mapstructure:"page_size"`
	Unit                string       `mapstructure:"unit"`
	Margins             MarginConfig `mapstructure:"margins"`
	FontFamily          string       `mapstructure:"font_family"`
	Logo                string       `mapstructure:"logo"`       // image file, built-in logo when empty
	Letterhead          string       `mapstructure:"letterhead"` // PDF file
	Watermark           string       `mapstructure:"watermark"`
	VerificationCode    string       `mapstructure:"verification_code"` // "", qr, pdf417
	VerificationBaseURL string       `mapstructure:"verification_base_url"`
	ImageConcurrency    int          `mapstructure:"image_concurrency"`
}

type ImageConfig struct {
	MaxPixels   int           `mapstructure:"max_pixels"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	AllowRemote bool          `mapstructure:"allow_remote"`
	AllowFiles  bool          `mapstructure:"allow_files"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	PublicURL       string        `mapstructure:"public_url"` // base of blob URLs
	RenderTimeout   time.Duration `mapstructure:"render_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type StoreConfig struct {
	Kind  string        `mapstructure:"kind"` // memory, redis, s3
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
	S3    S3Config      `mapstructure:"s3"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("render.page_size", pdfreport.PageSizeA4)
	v.SetDefault("render.unit", pdfreport.UnitMillimeter)
	v.SetDefault("render.margins.top", 20)
	v.SetDefault("render.margins.right", 18)
	v.SetDefault("render.margins.bottom", 22)
	v.SetDefault("render.margins.left", 18)
	v.SetDefault("render.font_family", "Helvetica")
	v.SetDefault("render.logo", "")
	v.SetDefault("render.letterhead", "")
	v.SetDefault("render.watermark", "")
	v.SetDefault("render.verification_code", "")
	v.SetDefault("render.verification_base_url", "")
	v.SetDefault("render.image_concurrency", 4)

	v.SetDefault("images.max_pixels", 16<<20)
	v.SetDefault("images.max_bytes", 20<<20)
	v.SetDefault("images.timeout", 15*time.Second)
	v.SetDefault("images.retries", 2)
	v.SetDefault("images.allow_remote", true)
	v.SetDefault("images.allow_files", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.render_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 8<<20)

	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.ttl", time.Hour)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "reports/")
	v.SetDefault("store.s3.region", "")
	v.SetDefault("store.s3.endpoint", "")
}

// Load reads the config file at path, if any, and applies environment
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ImageLoader builds the loader for image blocks.
func (c *Config) ImageLoader(log zerolog.Logger) *imageload.Loader {
	return imageload.New(imageload.Options{
		MaxPixels:   c.Images.MaxPixels,
		MaxBytes:    c.Images.MaxBytes,
		Timeout:     c.Images.Timeout,
		RetryMax:    c.Images.Retries,
		DisableHTTP: !c.Images.AllowRemote,
		DisableFS:   !c.Images.AllowFiles,
		Logger:      &log,
	})
}

// RendererOptions converts the render settings into renderer options.
func (c *Config) RendererOptions(log zerolog.Logger) ([]pdfreport.Option, error) {
	r := c.Render
	opts := []pdfreport.Option{
		pdfreport.WithUnit(r.Unit),
		pdfreport.WithPageSize(r.PageSize),
		pdfreport.WithMargins(r.Margins.Top, r.Margins.Right, r.Margins.Bottom, r.Margins.Left),
		pdfreport.WithFontFamily(r.FontFamily),
		pdfreport.WithImageLoader(c.ImageLoader(log)),
		pdfreport.WithImageConcurrency(r.ImageConcurrency),
		pdfreport.WithLogger(log),
	}
	if r.Logo != "" {
		data, err := os.ReadFile(r.Logo)
		if err != nil {
			return nil, fmt.Errorf("reading logo: %w", err)
		}
		opts = append(opts, pdfreport.WithLogo(data))
	}
	if r.Letterhead != "" {
		opts = append(opts, pdfreport.WithLetterhead(r.Letterhead))
	}
	if r.Watermark != "" {
		opts = append(opts, pdfreport.WithWatermark(r.Watermark))
	}
	if r.VerificationCode != "" {
		opts = append(opts, pdfreport.WithVerificationCode(pdfreport.CodeKind(strings.ToLower(r.VerificationCode)), r.VerificationBaseURL))
	}
	return opts, nil
}

// OpenStore connects the configured blob store. Memory and Redis URLs point
// at the server's /blobs route.
func (c *Config) OpenStore(ctx context.Context) (objecturl.Store, error) {
	blobURL := strings.TrimRight(c.Server.PublicURL, "/") + "/blobs"
	switch strings.ToLower(c.Store.Kind) {
	case "", "memory":
		return objecturl.NewMemoryStore(blobURL, c.Store.TTL), nil
	case "redis":
		rc := c.Store.Redis
		return objecturl.NewRedisStore(ctx, objecturl.RedisConf{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
		}, blobURL, c.Store.TTL)
	case "s3":
		sc := c.Store.S3
		if sc.Bucket == "" {
			return nil, fmt.Errorf("store.s3.bucket is required")
		}
		return objecturl.NewS3Store(ctx, objecturl.S3Conf{
			Bucket:   sc.Bucket,
			Prefix:   sc.Prefix,
			Region:   sc.Region,
			Endpoint: sc.Endpoint,
		}, c.Store.TTL)
	}
	return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
}
