package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Corpus describes the primary corpus layout: a manifest TSV plus a flat
// clips directory, both under one root.
type Corpus struct {
	Root     string `toml:"root"`
	Manifest string `toml:"manifest"`
	ClipsDir string `toml:"clips_dir"`
	Locale   string `toml:"locale"`
}

// Split contains the train/dev/test partition parameters.
type Split struct {
	DevRatio  float64 `toml:"dev_ratio"`
	TestRatio float64 `toml:"test_ratio"`
	Seed      int64   `toml:"seed"`
}

// Merge contains defaults for corpus merging.
type Merge struct {
	MinWords         int  `toml:"min_words"`
	DedupeBySentence bool `toml:"dedupe_by_sentence"`
}

// Transcode contains ffmpeg invocation parameters for clip conversion.
type Transcode struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Bitrate    string `toml:"bitrate"`
	Workers    int    `toml:"workers"`
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
}

// Fetch contains dataset download settings.
type Fetch struct {
	DownloadDir          string `toml:"download_dir"`
	L2ArcticBaseURL      string `toml:"l2arctic_base_url"`
	PeoplesSpeechBaseURL string `toml:"peoples_speech_base_url"`
	MinFreeGiB           int    `toml:"min_free_gib"`
}

// Features contains filter-bank extraction settings.
type Features struct {
	OutDir       string    `toml:"out_dir"`
	NumMelBins   int       `toml:"num_mel_bins"`
	Window       int       `toml:"window"`
	Resolution   int       `toml:"resolution"`
	MelFmin      float64   `toml:"mel_fmin"`
	MelFmax      float64   `toml:"mel_fmax"`
	SpeedFactors []float64 `toml:"speed_factors"`
	Workers      int       `toml:"workers"`
}

// Audit contains thresholds for the manifest audit checks.
type Audit struct {
	NearDupeThreshold float64 `toml:"near_dupe_threshold"`
	TopWords          int     `toml:"top_words"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Ledger contains the run-history database location.
type Ledger struct {
	Path string `toml:"path"`
}

// Config encapsulates all configuration values for corpuskit.
//
// Configuration sections by subsystem:
//   - Corpus: primary manifest and clips directory layout
//   - Split: partition ratios and the deterministic seed
//   - Merge: dedup and minimum-word thresholds
//   - Transcode: ffmpeg/ffprobe binaries and encode parameters
//   - Fetch: dataset archive sources and download directory
//   - Features: filter-bank extraction parameters
//   - Audit: manifest audit thresholds
//   - Logging: log format, level, and directory
//   - Ledger: run history and probe cache database
type Config struct {
	Corpus    Corpus    `toml:"corpus"`
	Split     Split     `toml:"split"`
	Merge     Merge     `toml:"merge"`
	Transcode Transcode `toml:"transcode"`
	Fetch     Fetch     `toml:"fetch"`
	Features  Features  `toml:"features"`
	Audit     Audit     `toml:"audit"`
	Logging   Logging   `toml:"logging"`
	Ledger    Ledger    `toml:"ledger"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/corpuskit/config.toml")
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

// ResolvePath reports which configuration file a run would read, and whether
// it exists yet, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
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

	defaultPath, err := expandPath("~/.config/corpuskit/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("corpuskit.toml")
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

// ManifestPath returns the absolute path of the primary manifest TSV.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Corpus.Root, c.Corpus.Manifest)
}

// ClipsPath returns the absolute path of the primary clips directory.
func (c *Config) ClipsPath() string {
	return filepath.Join(c.Corpus.Root, c.Corpus.ClipsDir)
}

// PartPath returns the manifest path for a named split part (train/dev/test).
func (c *Config) PartPath(name string) string {
	return filepath.Join(c.Corpus.Root, name+".tsv")
}

// FeaturesPath returns the feature output directory: features.out_dir when
// absolute, otherwise resolved against the corpus root.
func (c *Config) FeaturesPath() string {
	if filepath.IsAbs(c.Features.OutDir) {
		return c.Features.OutDir
	}
	return filepath.Join(c.Corpus.Root, c.Features.OutDir)
}

// EnsureDirectories creates the log, ledger, and download directories. The
// corpus root is deliberately left alone: a missing root must surface as a
// precondition error, not as a silently created empty corpus.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Logging.Dir, filepath.Dir(c.Ledger.Path)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Fetch.DownloadDir) != "" {
		if err := os.MkdirAll(c.Fetch.DownloadDir, 0o755); err != nil {
			return fmt.Errorf("create download directory %q: %w", c.Fetch.DownloadDir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for clip transcoding.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.Transcode.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.Transcode.FFprobe); b != "" {
		return b
	}
	return "ffprobe"
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

func defaultDownloadDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "corpuskit", "downloads")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/corpuskit/downloads"
	}
	return filepath.Join(home, ".cache", "corpuskit", "downloads")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
