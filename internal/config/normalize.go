package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeCorpus(); err != nil {
		return err
	}
	c.normalizeMerge()
	c.normalizeTranscode()
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	c.normalizeFeatures()
	c.normalizeAudit()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeCorpus() error {
	if value, ok := os.LookupEnv("CORPUSKIT_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Corpus.Root = strings.TrimSpace(value)
	}
	var err error
	if c.Corpus.Root, err = expandPath(c.Corpus.Root); err != nil {
		return fmt.Errorf("corpus.root: %w", err)
	}
	c.Corpus.Manifest = strings.TrimSpace(c.Corpus.Manifest)
	if c.Corpus.Manifest == "" {
		c.Corpus.Manifest = defaultManifestName
	}
	c.Corpus.ClipsDir = strings.TrimSpace(c.Corpus.ClipsDir)
	if c.Corpus.ClipsDir == "" {
		c.Corpus.ClipsDir = defaultClipsDirName
	}
	c.Corpus.Locale = strings.ToLower(strings.TrimSpace(c.Corpus.Locale))
	if c.Corpus.Locale == "" {
		c.Corpus.Locale = defaultLocale
	}
	return nil
}

func (c *Config) normalizeMerge() {
	if c.Merge.MinWords < 0 {
		c.Merge.MinWords = 0
	}
}

func (c *Config) normalizeTranscode() {
	if c.Transcode.SampleRate <= 0 {
		c.Transcode.SampleRate = defaultSampleRate
	}
	if c.Transcode.Channels <= 0 {
		c.Transcode.Channels = defaultChannels
	}
	c.Transcode.Bitrate = strings.TrimSpace(c.Transcode.Bitrate)
	if c.Transcode.Bitrate == "" {
		c.Transcode.Bitrate = defaultBitrate
	}
	if c.Transcode.Workers < 0 {
		c.Transcode.Workers = 0
	}
	c.Transcode.FFmpeg = strings.TrimSpace(c.Transcode.FFmpeg)
	if c.Transcode.FFmpeg == "" {
		c.Transcode.FFmpeg = defaultFFmpeg
	}
	c.Transcode.FFprobe = strings.TrimSpace(c.Transcode.FFprobe)
	if c.Transcode.FFprobe == "" {
		c.Transcode.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeFetch() error {
	var err error
	if strings.TrimSpace(c.Fetch.DownloadDir) == "" {
		c.Fetch.DownloadDir = defaultDownloadDir()
	}
	if c.Fetch.DownloadDir, err = expandPath(c.Fetch.DownloadDir); err != nil {
		return fmt.Errorf("fetch.download_dir: %w", err)
	}
	c.Fetch.L2ArcticBaseURL = strings.TrimRight(strings.TrimSpace(c.Fetch.L2ArcticBaseURL), "/")
	if c.Fetch.L2ArcticBaseURL == "" {
		c.Fetch.L2ArcticBaseURL = defaultL2ArcticURL
	}
	c.Fetch.PeoplesSpeechBaseURL = strings.TrimRight(strings.TrimSpace(c.Fetch.PeoplesSpeechBaseURL), "/")
	if c.Fetch.PeoplesSpeechBaseURL == "" {
		c.Fetch.PeoplesSpeechBaseURL = defaultPeoplesURL
	}
	if c.Fetch.MinFreeGiB < 0 {
		c.Fetch.MinFreeGiB = 0
	}
	return nil
}

func (c *Config) normalizeFeatures() {
	c.Features.OutDir = strings.TrimSpace(c.Features.OutDir)
	if c.Features.OutDir == "" {
		c.Features.OutDir = defaultFeaturesDir
	}
	if c.Features.NumMelBins <= 0 {
		c.Features.NumMelBins = defaultNumMelBins
	}
	if c.Features.Window <= 0 {
		c.Features.Window = defaultMelWindow
	}
	if c.Features.Resolution <= 0 {
		c.Features.Resolution = defaultMelResolution
	}
	if c.Features.MelFmin < 0 {
		c.Features.MelFmin = 0
	}
	if c.Features.MelFmax <= 0 {
		c.Features.MelFmax = defaultMelFmax
	}
	if len(c.Features.SpeedFactors) == 0 {
		c.Features.SpeedFactors = []float64{0.9, 1.1}
	}
	if c.Features.Workers < 0 {
		c.Features.Workers = 0
	}
}

func (c *Config) normalizeAudit() {
	if c.Audit.NearDupeThreshold <= 0 || c.Audit.NearDupeThreshold > 1 {
		c.Audit.NearDupeThreshold = defaultNearDupe
	}
	if c.Audit.TopWords <= 0 {
		c.Audit.TopWords = defaultTopWords
	}
}

func (c *Config) normalizeLedger() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
