package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// PreprocessConfig holds image cleanup settings applied before OCR.
type PreprocessConfig struct {
	// TargetWidth is the width images narrower than it are upscaled to (default 2400).
	TargetWidth int `json:"target_width" yaml:"target_width" mapstructure:"target_width"`

	// MaxHeight caps the upscaled height (default 5000).
	MaxHeight int `json:"max_height" yaml:"max_height" mapstructure:"max_height"`

	// BlockSize is the adaptive threshold neighbourhood, odd (default 15).
	BlockSize int `json:"block_size" yaml:"block_size" mapstructure:"block_size"`

	// Offset is the constant subtracted from the weighted mean (default 10).
	Offset int `json:"offset" yaml:"offset" mapstructure:"offset"`

	// DebugDir receives one image per preprocessing step when non-empty.
	DebugDir string `json:"debug_dir,omitempty" yaml:"debug_dir,omitempty" mapstructure:"debug_dir"`
}

// OCRBackend identifies the OCR tool.
type OCRBackend string

const (
	OCRTesseract OCRBackend = "tesseract"
	OCRContainer OCRBackend = "container"
)

// OCRConfig holds settings for the OCR stage.
type OCRConfig struct {
	// Backend selects the OCR tool: tesseract (local binary) or container.
	Backend OCRBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Binary is the tesseract executable name or path (default "tesseract").
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Image is the container image used by the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Language is the tesseract language code (default "eng").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// MinChars is the length under which a second, automatic-segmentation
	// pass is attempted (default 50).
	MinChars int `json:"min_chars" yaml:"min_chars" mapstructure:"min_chars"`
}

// AIConfig holds shared settings for stages that call a language model.
type AIConfig struct {
	// Model is the model identifier (e.g. "llama3.1:8b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// URL is the base URL of the Ollama API.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// APIKey is an optional bearer token for proxied Ollama endpoints.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ExtractionConfig holds settings for the structured-extraction stage.
type ExtractionConfig struct {
	AIConfig   `yaml:",inline" mapstructure:",squash"`
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
}

// BatchConfig holds settings for batch digitization of a project tree.
type BatchConfig struct {
	// ProjectRoot contains assets/recipe_images, assets/markdown and
	// assets/processed_images.
	ProjectRoot string `json:"project_root" yaml:"project_root" mapstructure:"project_root"`

	// ImageTimeout bounds the processing of one image (default 5m).
	ImageTimeout time.Duration `json:"image_timeout" yaml:"image_timeout" mapstructure:"image_timeout"`

	// Debug keeps preprocessing snapshots and prints OCR text.
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// CatalogConfig holds settings for the recipe catalog.
type CatalogConfig struct {
	// CatalogDir holds cookbook.db and exports.
	CatalogDir string `json:"catalog_dir" yaml:"catalog_dir" mapstructure:"catalog_dir"`

	// RecipesDir is the directory of Recipe Documents to ingest.
	RecipesDir string `json:"recipes_dir" yaml:"recipes_dir" mapstructure:"recipes_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ServeConfig holds settings for the read-only HTTP API.
type ServeConfig struct {
	Addr           string   `json:"addr" yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig selects diagnostic log level and format (json, console, pretty).
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all stage configurations.
type Config struct {
	Preprocess PreprocessConfig `json:"preprocess" yaml:"preprocess" mapstructure:"preprocess"`
	OCR        OCRConfig        `json:"ocr" yaml:"ocr" mapstructure:"ocr"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Batch      BatchConfig      `json:"batch" yaml:"batch" mapstructure:"batch"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Serve      ServeConfig      `json:"serve" yaml:"serve" mapstructure:"serve"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		Preprocess: PreprocessConfig{
			TargetWidth: 2400,
			MaxHeight:   5000,
			BlockSize:   15,
			Offset:      10,
		},
		OCR: OCRConfig{
			Backend:  OCRTesseract,
			Binary:   "tesseract",
			Image:    "tesseractshadow/tesseract4re:latest",
			Language: "eng",
			MinChars: 50,
		},
		Extraction: ExtractionConfig{
			AIConfig: AIConfig{
				Model:      "llama3.1:8b",
				URL:        "http://localhost:11434",
				MaxRetries: 3,
			},
			HTTPConfig: HTTPConfig{
				Timeout:   120 * time.Second,
				UserAgent: "cookbook/0.1",
			},
		},
		Batch: BatchConfig{
			ProjectRoot:  ".",
			ImageTimeout: 5 * time.Minute,
		},
		Catalog: CatalogConfig{
			CatalogDir: "catalog",
			RecipesDir: "recipes",
			MaxResults: 20,
		},
		Serve: ServeConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside a stage.
func (c Config) Validate() error {
	return validation.Errors{
		"preprocess": validation.ValidateStruct(&c.Preprocess,
			validation.Field(&c.Preprocess.TargetWidth, validation.Min(1)),
			validation.Field(&c.Preprocess.MaxHeight, validation.Min(1)),
			validation.Field(&c.Preprocess.BlockSize, validation.Min(3), validation.By(odd)),
		),
		"ocr": validation.ValidateStruct(&c.OCR,
			validation.Field(&c.OCR.Backend, validation.Required, validation.In(OCRTesseract, OCRContainer)),
			validation.Field(&c.OCR.Language, validation.Required),
		),
		"extraction": validation.ValidateStruct(&c.Extraction.AIConfig,
			validation.Field(&c.Extraction.Model, validation.Required),
			validation.Field(&c.Extraction.URL, validation.Required),
			validation.Field(&c.Extraction.MaxRetries, validation.Min(0)),
		),
		"logging": validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Format, validation.In("", "json", "console", "pretty")),
		),
	}.Filter()
}

func odd(value any) error {
	n, _ := value.(int)
	if n%2 == 0 {
		return validation.NewError("validation_odd", "must be odd")
	}
	return nil
}
