package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mchmarny/admitguide/pkg/catalog"
	"github.com/mchmarny/admitguide/pkg/index"
	"github.com/mchmarny/admitguide/pkg/logging"
	"github.com/mchmarny/admitguide/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	envPrefix = "ADMITGUIDE_"

	searchDefaultK        = 5
	matchWeightDefault    = 0.7
	serverAddressDefault  = "127.0.0.1:8080"
	requestTimeoutDefault = 10 * time.Second
	shutdownWaitDefault   = 5 * time.Second
	feedbackDSNDefault    = "feedback.db"
	cacheDirName          = "cache"
)

// Config represents the app config file.
type Config struct {
	Model      Model                 `yaml:"model"`
	Catalog    Catalog               `yaml:"catalog"`
	Text       index.TokenizerConfig `yaml:"text"`
	Search     Search                `yaml:"search"`
	Bands      model.Bands           `yaml:"bands"`
	Evaluation Evaluation            `yaml:"evaluation"`
	Server     Server                `yaml:"server"`
	Feedback   Feedback              `yaml:"feedback"`
	Log        Log                   `yaml:"log"`
	// CacheDir holds downloaded remote artifacts.
	CacheDir string `yaml:"cache_dir"`
}

type Model struct {
	// Path is a local file or an http(s) URL.
	Path string `yaml:"path"`
	// RuntimeLibrary is the onnxruntime shared library, only needed for
	// onnx artifacts.
	RuntimeLibrary string `yaml:"runtime_library,omitempty"`
}

type Catalog struct {
	Path    string          `yaml:"path"`
	Sheet   string          `yaml:"sheet,omitempty"`
	Columns catalog.Columns `yaml:"columns"`
}

// Search holds result-count limits. MaxK caps the requested count; zero
// leaves it uncapped.
type Search struct {
	DefaultK int     `yaml:"default_k"`
	MaxK     int     `yaml:"max_k"`
	MinScore float64 `yaml:"min_score"`
}

// Requirement compares an applicant score to a catalog column.
// The requirement is met when the applicant value is at least the
// catalog value.
type Requirement struct {
	Field  string `yaml:"field"`
	Column string `yaml:"column"`
}

type Evaluation struct {
	// MatchWeight is the share of the requirement match in the final
	// probability, the rest comes from the model.
	MatchWeight float64 `yaml:"match_weight"`
	// Features maps model input fields to catalog columns. Unmapped fields
	// read the column of the same name.
	Features     map[string]string `yaml:"features"`
	Requirements []Requirement     `yaml:"requirements"`
}

type Server struct {
	Address        string        `yaml:"address"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ShutdownWait   time.Duration `yaml:"shutdown_wait"`
}

type Feedback struct {
	// DSN is a SQLite file path or a postgres:// URL.
	DSN string `yaml:"dsn"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the config used when no file exists.
func Default() *Config {
	return &Config{
		Model: Model{
			Path: "model.json",
		},
		Catalog: Catalog{
			Path:    "university_admission_requirements.xlsx",
			Columns: catalog.DefaultColumns(),
		},
		Text: index.DefaultTokenizerConfig(),
		Search: Search{
			DefaultK: searchDefaultK,
		},
		Bands: model.DefaultBands(),
		Evaluation: Evaluation{
			MatchWeight: matchWeightDefault,
			Features: map[string]string{
				"gre":             "Average GRE Required",
				"toefl":           "Average TOEFL Required",
				"ielts":           "Average IELTS Required",
				"cgpa":            "Minimum CGPA Required",
				"acceptance_rate": "Acceptance Rate (%)",
				"rating":          "University Rating (1-5)",
				"location":        catalog.LocationColumnDefault,
				"program_area":    catalog.ProgramColumnDefault,
			},
			Requirements: []Requirement{
				{Field: "gre", Column: "Average GRE Required"},
				{Field: "toefl", Column: "Average TOEFL Required"},
				{Field: "ielts", Column: "Average IELTS Required"},
				{Field: "cgpa", Column: "Minimum CGPA Required"},
			},
		},
		Server: Server{
			Address:        serverAddressDefault,
			RequestTimeout: requestTimeoutDefault,
			ShutdownWait:   shutdownWaitDefault,
		},
		Feedback: Feedback{
			DSN: feedbackDSNDefault,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks value ranges that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	if strings.TrimSpace(c.Model.Path) == "" {
		return errors.New("model.path is required")
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return errors.New("catalog.path is required")
	}
	if strings.TrimSpace(c.Catalog.Columns.University) == "" {
		return errors.New("catalog.columns.university is required")
	}
	if err := c.Bands.Validate(); err != nil {
		return fmt.Errorf("bands: %w", err)
	}
	if c.Search.DefaultK < 1 {
		return fmt.Errorf("search.default_k must be at least 1, got %d", c.Search.DefaultK)
	}
	if c.Search.MaxK < 0 {
		return fmt.Errorf("search.max_k must not be negative, got %d", c.Search.MaxK)
	}
	if c.Search.MaxK > 0 && c.Search.MaxK < c.Search.DefaultK {
		return fmt.Errorf("search.max_k (%d) must not be less than search.default_k (%d)", c.Search.MaxK, c.Search.DefaultK)
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be within [0, 1], got %v", c.Search.MinScore)
	}
	if c.Text.MinTokenLength < 1 {
		return fmt.Errorf("text.min_token_length must be at least 1, got %d", c.Text.MinTokenLength)
	}
	if c.Evaluation.MatchWeight < 0 || c.Evaluation.MatchWeight > 1 {
		return fmt.Errorf("evaluation.match_weight must be within [0, 1], got %v", c.Evaluation.MatchWeight)
	}
	for i, r := range c.Evaluation.Requirements {
		if r.Field == "" || r.Column == "" {
			return fmt.Errorf("evaluation.requirements[%d] needs both field and column", i)
		}
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if strings.TrimSpace(c.Feedback.DSN) == "" {
		return errors.New("feedback.dsn is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from ADMITGUIDE_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	str("MODEL_PATH", &c.Model.Path)
	str("MODEL_RUNTIME_LIBRARY", &c.Model.RuntimeLibrary)
	str("CATALOG_PATH", &c.Catalog.Path)
	str("CATALOG_SHEET", &c.Catalog.Sheet)
	str("SERVER_ADDRESS", &c.Server.Address)
	str("FEEDBACK_DSN", &c.Feedback.DSN)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("CACHE_DIR", &c.CacheDir)

	if v, ok := os.LookupEnv(envPrefix + "SEARCH_MIN_SCORE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSEARCH_MIN_SCORE %q: %w", envPrefix, v, err)
		}
		c.Search.MinScore = f
	}
	if v, ok := os.LookupEnv(envPrefix + "SERVER_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_REQUEST_TIMEOUT %q: %w", envPrefix, v, err)
		}
		c.Server.RequestTimeout = d
	}
	return nil
}

// Save writes the config into dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configFileName, err)
	}
	return nil
}

// Load reads the config file at path. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}

	// relative artifact paths are relative to the config file
	base := filepath.Dir(path)
	c.Model.Path = resolvePath(base, c.Model.Path)
	c.Catalog.Path = resolvePath(base, c.Catalog.Path)
	if !strings.HasPrefix(c.Feedback.DSN, "file:") {
		c.Feedback.DSN = resolvePath(base, c.Feedback.DSN)
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(base, cacheDirName)
	}

	slog.Debug("config loaded", "path", path)
	return c, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(base, p)
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
