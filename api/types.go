package api

import "time"

// Track holds descriptive metadata read from the encoded input
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Genre  string `json:"genre"`
	Year   int    `json:"year"`
	Format string `json:"format"`
}

// Status is the engine's lifecycle state
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CommandType identifies a control intent
type CommandType int

const (
	CmdPlay CommandType = iota
	CmdSetVolume
	CmdStop
)

func (c CommandType) String() string {
	switch c {
	case CmdPlay:
		return "play"
	case CmdSetVolume:
		return "set_volume"
	case CmdStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is a control intent sent to the engine. Payload is the decoded
// buffer for CmdPlay and is ignored otherwise; Volume is only read for
// CmdSetVolume. Reply, when set, receives the handling result exactly once
// and must have room for one value.
type Command struct {
	Type    CommandType
	Payload any
	Volume  uint32
	Reply   chan<- error
}

// EventType identifies an engine event
type EventType int

const (
	EventStateChange EventType = iota
	EventVolumeChange
	EventTrackEnded
	EventError
)

// AllEventTypes lists every event type the engine publishes
var AllEventTypes = []EventType{
	EventStateChange,
	EventVolumeChange,
	EventTrackEnded,
	EventError,
}

// Event is published by the engine on its event bus
type Event struct {
	Type    EventType
	Payload any
	Time    time.Time
}

// Snapshot is a point-in-time copy of the engine's observable state
type Snapshot struct {
	Status   Status
	Volume   uint32
	Position float64
	Length   int
	Track    *Track
}

// Player is the control surface front ends drive. Starting playback needs
// a decoded buffer and lives on the concrete engine.
type Player interface {
	SetVolume(volume uint32) error
	Stop() error
	Snapshot() Snapshot
	Done() <-chan struct{}
}
