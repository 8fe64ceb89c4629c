package model

// Project lifecycle status. Transitions are forward-only; Failed is
// reachable from any non-terminal status.
type ProjectStatus string

const (
	StatusCreated          ProjectStatus = "created"
	StatusMetadataReady    ProjectStatus = "metadata_ready"
	StatusNarrationReady   ProjectStatus = "narration_ready"
	StatusPromptsReady     ProjectStatus = "prompts_ready"
	StatusProsodyPlanReady ProjectStatus = "prosody_plan_ready"
	StatusMediaReady       ProjectStatus = "media_ready"
	StatusRendered         ProjectStatus = "rendered"
	StatusSubtitled        ProjectStatus = "subtitled"
	StatusCompleted        ProjectStatus = "completed"
	StatusFailed           ProjectStatus = "failed"
)

// Terminal reports whether no further pipeline work is possible.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Creation modes
type CreationMode string

const (
	ModeTopic      CreationMode = "topic"
	ModePrompt     CreationMode = "prompt"
	ModeNarrations CreationMode = "narrations"
)

var ValidModes = []CreationMode{ModeTopic, ModePrompt, ModeNarrations}

// Orientation
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// Entrance animations
type Entrance string

const (
	EntranceNone Entrance = "none"
	EntranceFade Entrance = "fade_in"
)

// Show animations (the Ken Burns motion applied while the scene is on screen)
type ShowMotion string

const (
	ShowNone     ShowMotion = "none"
	ShowZoomIn   ShowMotion = "zoom_in"
	ShowZoomOut  ShowMotion = "zoom_out"
	ShowPanLeft  ShowMotion = "pan_left"
	ShowPanRight ShowMotion = "pan_right"
)

// Exit animations
type Exit string

const (
	ExitNone Exit = "none"
	ExitFade Exit = "fade_out"
)

var (
	ValidEntrances = []Entrance{EntranceNone, EntranceFade}
	ValidShows     = []ShowMotion{ShowNone, ShowZoomIn, ShowZoomOut, ShowPanLeft, ShowPanRight}
	ValidExits     = []Exit{ExitNone, ExitFade}
)

// Log levels
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Languages
type Language string

const (
	LanguageEN Language = "en"
	LanguageTR Language = "tr"
	LanguageFR Language = "fr"
)
