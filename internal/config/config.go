// Package config holds the static configuration for a campaign run. Fields
// are populated from environment variables using the caarlos0/env library.
// Nested structs are tagged with envPrefix so their fields are parsed with
// the given prefix. Quota caps, validation policy, and model identifiers are
// configuration, never computed by the pipeline.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates all configuration sections for the application.
type Config struct {
	// Env specifies the deployment environment (e.g. prod, dev).
	Env string `env:"ENV" envDefault:"dev"`

	// Gemini configures model identifiers, the API key, and per-call-class
	// timeouts. Environment variables prefixed with GEMINI_.
	Gemini Gemini `envPrefix:"GEMINI_"`

	// Quota configures the per-content-type generation caps.
	// Environment variables prefixed with QUOTA_.
	Quota Quota `envPrefix:"QUOTA_"`

	// Validation configures the visual generation acceptance loop.
	// Environment variables prefixed with VALIDATION_.
	Validation Validation `envPrefix:"VALIDATION_"`

	// Fetch configures the web content fetcher.
	// Environment variables prefixed with FETCH_.
	Fetch Fetch `envPrefix:"FETCH_"`

	// Assets configures where generated asset bytes are persisted.
	// Environment variables prefixed with ASSETS_.
	Assets Assets `envPrefix:"ASSETS_"`

	// HTTP configures the campaign-server listener.
	// Environment variables prefixed with HTTP_.
	HTTP HTTP `envPrefix:"HTTP_"`
}

// Gemini holds Gemini API configuration.
type Gemini struct {
	// APIKey is the Gemini API key. Empty means no AI is available and the
	// whole pipeline runs on the deterministic fallback path.
	APIKey string `env:"API_KEY"`

	// TextModel handles business analysis and post text generation.
	TextModel string `env:"TEXT_MODEL" envDefault:"gemini-2.5-flash"`

	// ValidationModel scores generated assets. Kept separate from TextModel
	// so validation can run on a cheaper model.
	ValidationModel string `env:"VALIDATION_MODEL" envDefault:"gemini-2.5-flash-lite"`

	// ImageModel generates post images.
	ImageModel string `env:"IMAGE_MODEL" envDefault:"gemini-3-pro-image-preview"`

	// VideoModel generates post videos.
	VideoModel string `env:"VIDEO_MODEL" envDefault:"veo-3.0-generate-001"`

	// AnalysisTimeout bounds the business analysis call.
	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"45s"`

	// TextTimeout bounds one batched post generation call.
	TextTimeout time.Duration `env:"TEXT_TIMEOUT" envDefault:"60s"`

	// ImageTimeout bounds one image generation call. Image models routinely
	// take 10-30s, so this is generous compared to text calls.
	ImageTimeout time.Duration `env:"IMAGE_TIMEOUT" envDefault:"120s"`

	// VideoTimeout bounds one video generation call including operation polling.
	VideoTimeout time.Duration `env:"VIDEO_TIMEOUT" envDefault:"300s"`
}

// Configured reports whether a Gemini API key is present.
func (g Gemini) Configured() bool {
	return g.APIKey != ""
}

// Quota holds the per-content-type caps. The text cap is higher than the
// image/video caps, reflecting relative API cost.
type Quota struct {
	MaxTextURLPosts int `env:"MAX_TEXT_URL_POSTS" envDefault:"10"`
	MaxImagePosts   int `env:"MAX_IMAGE_POSTS" envDefault:"4"`
	MaxVideoPosts   int `env:"MAX_VIDEO_POSTS" envDefault:"2"`
}

// Validation holds the generate-validate-correct loop policy.
type Validation struct {
	// MaxIterations is the maximum number of generation attempts per post
	// before falling back to a placeholder asset.
	MaxIterations int `env:"MAX_ITERATIONS" envDefault:"3"`

	// ScoreThreshold is the minimum 0-100 validation score for acceptance.
	ScoreThreshold int `env:"SCORE_THRESHOLD" envDefault:"75"`
}

// Fetch holds web content fetcher settings.
type Fetch struct {
	// Timeout bounds a single URL fetch.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// MaxConcurrent bounds the fetch fan-out.
	MaxConcurrent int `env:"MAX_CONCURRENT" envDefault:"5"`

	// MaxBodyBytes caps how much of a page body is read.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// UserAgent is sent on every fetch request.
	UserAgent string `env:"USER_AGENT" envDefault:"campaign-engine/1.0"`
}

// Assets holds generated asset persistence settings.
type Assets struct {
	// Mode selects the asset store backend: "local" or "s3".
	Mode string `env:"MODE" envDefault:"local"`

	// LocalDir is where the local backend writes asset files.
	LocalDir string `env:"LOCAL_DIR" envDefault:"./campaign-assets"`

	// S3Bucket is the bucket for the s3 backend.
	S3Bucket string `env:"S3_BUCKET"`

	// S3Prefix is prepended to every S3 object key.
	S3Prefix string `env:"S3_PREFIX" envDefault:"campaigns"`

	// PublicBaseURL, when set, is used to build returned asset URLs instead
	// of the backend's native URL scheme.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

// HTTP holds the campaign-server listener settings.
type HTTP struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8080"`

	// RequestTimeout bounds one synchronous campaign generation request.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15m"`
}

// Load reads configuration from environment variables into a Config. All
// fields fall back to their declared defaults when no environment variable
// is provided.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
