package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pipeline.yaml
var pipelineYAML []byte

type Config struct {
	Models   ModelsConfig
	Upload   UploadConfig
	Web      WebConfig
	Pipeline PipelineConfig
}

type ModelsConfig struct {
	Dir         string // directory with the dlib model files
	CascadeFile string // path to the binary cascade classifier file
}

type UploadConfig struct {
	Dir     string // directory for uploaded and masked images
	MaxSize int64  // maximum upload size in bytes
}

type WebConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // extra CORS origins beyond localhost
}

// PipelineConfig holds detection and matching tuning, loaded from the
// embedded pipeline.yaml. The matcher tolerance can be overridden via
// the VERIFACE_TOLERANCE environment variable.
type PipelineConfig struct {
	Variations VariationsConfig `yaml:"variations"`
	Cascade    CascadeConfig    `yaml:"cascade"`
	Matcher    MatcherConfig    `yaml:"matcher"`
}

type VariationsConfig struct {
	MaxDimension     int     `yaml:"max_dimension"`
	ContrastFactor   float64 `yaml:"contrast_factor"`
	BrightnessFactor float64 `yaml:"brightness_factor"`
}

type CascadeConfig struct {
	MinSize          int     `yaml:"min_size"`
	MaxSize          int     `yaml:"max_size"`
	ShiftFactor      float64 `yaml:"shift_factor"`
	ScaleFactor      float64 `yaml:"scale_factor"`
	OverlapThreshold float64 `yaml:"overlap_threshold"`
	QualityThreshold float64 `yaml:"quality_threshold"`
	MinAspect        float64 `yaml:"min_aspect"`
	MaxAspect        float64 `yaml:"max_aspect"`
}

type MatcherConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable.
func envList(key string) []string {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	var vals []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return vals
}

func Load() *Config {
	var pipeline PipelineConfig
	if err := yaml.Unmarshal(pipelineYAML, &pipeline); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded pipeline.yaml: " + err.Error())
	}

	pipeline.Matcher.Tolerance = envFloat("VERIFACE_TOLERANCE", pipeline.Matcher.Tolerance)

	return &Config{
		Models: ModelsConfig{
			Dir:         envString("VERIFACE_MODELS_DIR", "models"),
			CascadeFile: envString("VERIFACE_CASCADE_FILE", "models/facefinder"),
		},
		Upload: UploadConfig{
			Dir:     envString("VERIFACE_UPLOAD_DIR", "uploads"),
			MaxSize: int64(envInt("VERIFACE_MAX_UPLOAD_MB", 16)) << 20,
		},
		Web: WebConfig{
			Port:           envInt("VERIFACE_WEB_PORT", 8080),
			Host:           envString("VERIFACE_WEB_HOST", "0.0.0.0"),
			AllowedOrigins: envList("VERIFACE_ALLOWED_ORIGINS"),
		},
		Pipeline: pipeline,
	}
}
