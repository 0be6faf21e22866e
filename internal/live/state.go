package live

// Phase is the lifecycle state of a Pipeline.
type Phase int32

const (
	Idle Phase = iota
	Starting
	Running
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// TranscriptState is the cumulative output of one capture session.
type TranscriptState struct {
	IsRunning        bool   `json:"is_running"`
	Transcript       string `json:"transcript"`
	LastError        string `json:"last_error,omitempty"`
	AppendedSegments int    `json:"appended_segments"`
	WAVPath          string `json:"wav_path,omitempty"`
}

// Observer receives a snapshot after every transcribed chunk and on every
// state transition. OnUpdate runs on the pipeline goroutine.
type Observer interface {
	OnUpdate(TranscriptState)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TranscriptState)

// OnUpdate calls f(s).
func (f ObserverFunc) OnUpdate(s TranscriptState) { f(s) }
