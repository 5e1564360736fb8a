package config

const (
	defaultCorpusRoot    = "~/corpus"
	defaultManifestName  = "custom_validated.tsv"
	defaultClipsDirName  = "clips"
	defaultLocale        = "en"
	defaultDevRatio      = 0.1
	defaultTestRatio     = 0.1
	defaultSeed          = 42
	defaultMinWords      = 3
	defaultSampleRate    = 32000
	defaultChannels      = 1
	defaultBitrate       = "48k"
	defaultFFmpeg        = "ffmpeg"
	defaultFFprobe       = "ffprobe"
	defaultL2ArcticURL   = "https://huggingface.co/datasets/cmu-speech/l2-arctic/resolve/main"
	defaultPeoplesURL    = "https://huggingface.co/datasets/MLCommons/peoples_speech/resolve/main/train"
	defaultMinFreeGiB    = 10
	defaultFeaturesDir   = "fbank"
	defaultNumMelBins    = 80
	defaultMelWindow     = 800
	defaultMelResolution = 2048
	defaultMelFmax       = 8000
	defaultNearDupe      = 0.9
	defaultTopWords      = 3
	defaultLogDir        = "~/.local/share/corpuskit/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultLedgerPath    = "~/.local/share/corpuskit/corpuskit.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Corpus: Corpus{
			Root:     defaultCorpusRoot,
			Manifest: defaultManifestName,
			ClipsDir: defaultClipsDirName,
			Locale:   defaultLocale,
		},
		Split: Split{
			DevRatio:  defaultDevRatio,
			TestRatio: defaultTestRatio,
			Seed:      defaultSeed,
		},
		Merge: Merge{
			MinWords:         defaultMinWords,
			DedupeBySentence: true,
		},
		Transcode: Transcode{
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			Bitrate:    defaultBitrate,
			FFmpeg:     defaultFFmpeg,
			FFprobe:    defaultFFprobe,
		},
		Fetch: Fetch{
			DownloadDir:          defaultDownloadDir(),
			L2ArcticBaseURL:      defaultL2ArcticURL,
			PeoplesSpeechBaseURL: defaultPeoplesURL,
			MinFreeGiB:           defaultMinFreeGiB,
		},
		Features: Features{
			OutDir:       defaultFeaturesDir,
			NumMelBins:   defaultNumMelBins,
			Window:       defaultMelWindow,
			Resolution:   defaultMelResolution,
			MelFmax:      defaultMelFmax,
			SpeedFactors: []float64{0.9, 1.1},
		},
		Audit: Audit{
			NearDupeThreshold: defaultNearDupe,
			TopWords:          defaultTopWords,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Ledger: Ledger{
			Path: defaultLedgerPath,
		},
	}
}
