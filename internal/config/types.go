package config

// RenderConfig holds every tunable of the generation and rendering pipeline.
// It is constructed once and shared read-only across all stages.
type RenderConfig struct {
	Model                 string  `yaml:"model"`
	ReasoningEffort       string  `yaml:"reasoning_effort"`
	SampleRate            int     `yaml:"sample_rate"`
	DPI                   int     `yaml:"dpi"`
	VideoWidth            int     `yaml:"video_width"`
	VideoHeight           int     `yaml:"video_height"`
	MontagePages          int     `yaml:"montage_pages"`
	MaxGenerationAttempts int     `yaml:"max_generation_attempts"`
	MaxCompileFixAttempts int     `yaml:"max_compile_fix_attempts"`
	LHScale               float64 `yaml:"lh_scale"`
	RHScale               float64 `yaml:"rh_scale"`
	SynthGain             float64 `yaml:"synth_gain"`
	NoMIDIBalance         bool    `yaml:"no_midi_balance"`
}

// ToolOverrides holds optional explicit paths for external tools,
// parsed from the config file or CLI flags. Empty values fall back
// to PATH lookup.
type ToolOverrides struct {
	LilyPond   string `yaml:"lilypond"`
	FluidSynth string `yaml:"fluidsynth"`
	PDFToPPM   string `yaml:"pdftoppm"`
	Magick     string `yaml:"magick"`
	FFmpeg     string `yaml:"ffmpeg"`
}

// File is the top-level structure of an optional sonataforge.yaml.
type File struct {
	Render RenderConfig  `yaml:"render"`
	Tools  ToolOverrides `yaml:"tools"`
}

// Default returns a RenderConfig populated with the stock defaults.
func Default() RenderConfig {
	return RenderConfig{
		Model:                 "gpt-5.2",
		ReasoningEffort:       "high",
		SampleRate:            44100,
		DPI:                   300,
		VideoWidth:            1920,
		VideoHeight:           1200,
		MontagePages:          4,
		MaxGenerationAttempts: 2,
		MaxCompileFixAttempts: 2,
		LHScale:               0.78,
		RHScale:               1.05,
		SynthGain:             0.7,
	}
}
