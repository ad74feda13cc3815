package config

const (
	defaultStagingDir          = "~/.local/share/optiscam/staging"
	defaultLogDir              = "~/.local/share/optiscam/logs"
	defaultAPIBind             = "127.0.0.1:8410"
	defaultSamplerStride       = 30
	defaultHolisticStride      = 60
	defaultMaxFrames           = 24
	defaultSharpnessThreshold  = 100.0
	defaultClipLimit           = 2.0
	defaultTileGridSize        = 8
	defaultOCRPrimaryURL       = "http://127.0.0.1:9003/ocr"
	defaultOCRFallbackURL      = "http://127.0.0.1:9004/recognize"
	defaultFallbackThreshold   = 0.5
	defaultOCRTimeoutSeconds   = 60
	defaultWhisperModel        = "tiny"
	defaultClassifierBaseURL   = "http://127.0.0.1:8000/v1/chat/completions"
	defaultClassifierModel     = "Qwen/Qwen3-VL-2B-Instruct"
	defaultClassifierFrames    = 6
	defaultClassifierTimeout   = 600
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultWorkers             = 1
	defaultStageTimeoutSeconds = 1800
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Sampler: Sampler{
			Stride:                 defaultSamplerStride,
			HolisticStride:         defaultHolisticStride,
			MaxFrames:              defaultMaxFrames,
			SharpnessThreshold:     defaultSharpnessThreshold,
			SharpnessFilterEnabled: true,
		},
		Enhance: Enhance{
			ClipLimit:    defaultClipLimit,
			TileGridSize: defaultTileGridSize,
		},
		OCR: OCR{
			PrimaryURL:            defaultOCRPrimaryURL,
			FallbackURL:           defaultOCRFallbackURL,
			FallbackThreshold:     defaultFallbackThreshold,
			RequestTimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		Transcriber: Transcriber{
			Model: defaultWhisperModel,
		},
		Classifier: Classifier{
			BaseURL:        defaultClassifierBaseURL,
			Model:          defaultClassifierModel,
			Mode:           ClassifierModeSampled,
			MaxFrames:      defaultClassifierFrames,
			MaxConcurrent:  1,
			TimeoutSeconds: defaultClassifierTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			Workers:             defaultWorkers,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
