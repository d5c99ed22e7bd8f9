package geofence

import "time"

// Sample точка, полученная от источника геолокации
type Sample struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	At        time.Time `json:"at"`
}

type Status int

const (
	StatusUnknown Status = iota
	StatusInRange
	StatusOutOfRange
)

func (s Status) String() string {
	switch s {
	case StatusInRange:
		return "In Range"
	case StatusOutOfRange:
		return "Out of Range"
	default:
		return "Unknown"
	}
}

// Evaluation результат проверки одной точки
type Evaluation struct {
	InRange        bool
	DistanceMeters float64
}

func (e Evaluation) Status() Status {
	if e.InRange {
		return StatusInRange
	}
	return StatusOutOfRange
}

// Transition изменение статуса, которое нужно записать в журнал
type Transition struct {
	Sample         Sample
	Status         Status
	DistanceMeters float64
	First          bool
}

// Gate решение о допуске отметки присутствия
type Gate int

const (
	GateAwaitingFix Gate = iota
	GateOpen
	GateOutOfRange
)

func (g Gate) String() string {
	switch g {
	case GateOpen:
		return "open"
	case GateOutOfRange:
		return "out_of_range"
	default:
		return "awaiting_fix"
	}
}
