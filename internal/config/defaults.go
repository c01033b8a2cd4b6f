package config

const (
	defaultConfigPath = "~/.config/clipforge/config.toml"

	defaultUploadDir = "~/.local/share/clipforge/uploads"
	defaultOutputDir = "~/.local/share/clipforge/outputs"
	defaultStateDir  = "~/.local/share/clipforge/state"
	defaultLogDir    = "~/.local/share/clipforge/logs"

	defaultAPIBind       = "127.0.0.1:7600"
	defaultPublicBaseURL = "http://127.0.0.1:7600"

	defaultFFmpeg   = "ffmpeg"
	defaultFFprobe  = "ffprobe"
	defaultWhisper  = "whisper-cli"
	defaultLanguage = "auto"

	defaultSpeechWeight             = 0.6
	defaultSilenceWeight            = 0.3
	defaultEnergyWeight             = 0.1
	defaultEnergyWordsPerSecond     = 2.5
	defaultMaxWindowsPerLength      = 12
	defaultHookScanSeconds          = 3.0
	defaultMinMeaningfulEditSeconds = 3.0
	defaultSilenceNoiseDB           = -35.0
	defaultSilenceMinSeconds        = 0.5
	defaultMinClipSeconds           = 5
	defaultMaxClipSeconds           = 180

	defaultDraftMaxSeconds = 10.0
	defaultDraftWidth      = 540
	defaultDraftHeight     = 960
	defaultDraftPreset     = "ultrafast"
	defaultDraftCRF        = 32
	defaultFinalWidth      = 1080
	defaultFinalHeight     = 1920
	defaultFinalPreset     = "fast"
	defaultFinalCRF        = 18

	defaultMaxConcurrentJobs = 2
	defaultAnalyzeTimeout    = 900
	defaultEnhanceTimeout    = 300
	defaultDraftTimeout      = 300
	defaultFinalTimeout      = 1800
	defaultIntakeWaitTimeout = 120
	defaultEventBuffer       = 256
	defaultShutdownGrace     = 10

	defaultPlan       = "free"
	defaultPeriodDays = 30

	defaultURLTTLSeconds = 24 * 60 * 60

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			Bind:          defaultAPIBind,
			PublicBaseURL: defaultPublicBaseURL,
			CORSOrigins:   []string{"http://localhost:3000"},
		},
		Tools: Tools{
			FFmpeg:   defaultFFmpeg,
			FFprobe:  defaultFFprobe,
			Whisper:  defaultWhisper,
			Language: defaultLanguage,
		},
		Analysis: Analysis{
			SpeechWeight:             defaultSpeechWeight,
			SilenceWeight:            defaultSilenceWeight,
			EnergyWeight:             defaultEnergyWeight,
			EnergyWordsPerSecond:     defaultEnergyWordsPerSecond,
			MaxWindowsPerLength:      defaultMaxWindowsPerLength,
			HookScanSeconds:          defaultHookScanSeconds,
			MinMeaningfulEditSeconds: defaultMinMeaningfulEditSeconds,
			SilenceNoiseDB:           defaultSilenceNoiseDB,
			SilenceMinSeconds:        defaultSilenceMinSeconds,
			MinClipSeconds:           defaultMinClipSeconds,
			MaxClipSeconds:           defaultMaxClipSeconds,
		},
		Render: Render{
			DraftMaxSeconds: defaultDraftMaxSeconds,
			DraftWidth:      defaultDraftWidth,
			DraftHeight:     defaultDraftHeight,
			DraftPreset:     defaultDraftPreset,
			DraftCRF:        defaultDraftCRF,
			FinalWidth:      defaultFinalWidth,
			FinalHeight:     defaultFinalHeight,
			FinalPreset:     defaultFinalPreset,
			FinalCRF:        defaultFinalCRF,
		},
		Workflow: Workflow{
			MaxConcurrentJobs:    defaultMaxConcurrentJobs,
			AnalyzeTimeout:       defaultAnalyzeTimeout,
			EnhanceTimeout:       defaultEnhanceTimeout,
			DraftTimeout:         defaultDraftTimeout,
			FinalTimeout:         defaultFinalTimeout,
			IntakeWaitTimeout:    defaultIntakeWaitTimeout,
			EventBufferPerJob:    defaultEventBuffer,
			ShutdownGraceSeconds: defaultShutdownGrace,
		},
		Entitlement: Entitlement{
			Enforce:     true,
			DefaultPlan: defaultPlan,
			PeriodDays:  defaultPeriodDays,
		},
		Storage: Storage{
			URLTTLSeconds: defaultURLTTLSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			DraftReady:     true,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
