package engine

// Stimulus is the closed set of stimulus kinds. The engine only decides when
// and which tag to present; rendering is keyed by tag elsewhere.
type Stimulus int

const (
	StimulusCircle Stimulus = iota
	StimulusSquare
	StimulusArrowLeft
	StimulusArrowRight
)

// stimulusSet is the pool trials draw from, in a fixed order so a seed
// replays the same sequence.
var stimulusSet = []Stimulus{
	StimulusCircle,
	StimulusSquare,
	StimulusArrowLeft,
	StimulusArrowRight,
}

// Tag returns the stable string identifier used in records and rendering.
func (s Stimulus) Tag() string {
	switch s {
	case StimulusCircle:
		return "circle"
	case StimulusSquare:
		return "square"
	case StimulusArrowLeft:
		return "arrow-left"
	case StimulusArrowRight:
		return "arrow-right"
	default:
		return "unknown"
	}
}

// Code identifies a participant input.
type Code int

const (
	CodeNone Code = iota
	// CodeAcknowledge advances Welcome and Debrief.
	CodeAcknowledge
	// CodeRestartPractice requests the explicit practice restart.
	CodeRestartPractice
	CodePrimary
	CodeSecondary
	CodeLeft
	CodeRight
)

// IsResponse reports whether the code counts as a trial response.
func (c Code) IsResponse() bool {
	switch c {
	case CodePrimary, CodeSecondary, CodeLeft, CodeRight:
		return true
	default:
		return false
	}
}

// expectedResponse is the static response mapping keyed by stimulus.
var expectedResponse = map[Stimulus]Code{
	StimulusCircle:     CodePrimary,
	StimulusSquare:     CodeSecondary,
	StimulusArrowLeft:  CodeLeft,
	StimulusArrowRight: CodeRight,
}

// ExpectedResponse returns the code counted correct for a stimulus.
func ExpectedResponse(s Stimulus) Code {
	return expectedResponse[s]
}
