// Package lifecycle runs the per-symbol position state machine: it decides
// what a consensus report means for the held position and carries the
// transition out against the brokerage.
package lifecycle

import (
	"fmt"

	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
)

// Thresholds for the transitions.
const (
	OpenConfidence    = 60
	ReverseConfidence = 75
	DangerImportance  = 7
)

// Action is the transition chosen for a symbol.
type Action string

const (
	ActionOpen        Action = "OPEN"
	ActionReverse     Action = "REVERSE"
	ActionCloseDanger Action = "CLOSE_DANGER"
	ActionHold        Action = "HOLD"
)

// Decision is the outcome of Decide.
type Decision struct {
	Action     Action         `json:"action"`
	Direction  core.Direction `json:"direction"`
	Confidence int            `json:"confidence"`
	Reason     string         `json:"reason"`
}

// Decide maps a report and the currently open position (nil when flat) to
// a transition. Rules apply in order: open, reverse, danger close, hold.
func Decide(report consensus.Report, current *core.Position) Decision {
	d := Decision{Action: ActionHold, Direction: report.Direction, Confidence: report.Confidence}

	if current == nil || !current.IsOpen() {
		if report.Direction != core.DirectionNeutral && report.Confidence >= OpenConfidence {
			d.Action = ActionOpen
			d.Reason = fmt.Sprintf("%s consensus at %d%%", report.Direction, report.Confidence)
			return d
		}
		d.Reason = "no position and no actionable consensus"
		return d
	}

	held := current.Side.Direction()
	if report.Direction == held.Opposite() && report.Confidence >= ReverseConfidence {
		d.Action = ActionReverse
		d.Reason = fmt.Sprintf("%s consensus at %d%% against %s position", report.Direction, report.Confidence, current.Side)
		return d
	}

	if top := report.MaxDangerImportance(); top >= DangerImportance {
		d.Action = ActionCloseDanger
		d.Reason = fmt.Sprintf("danger signal importance %d", top)
		return d
	}

	d.Reason = "holding " + string(current.Side)
	return d
}
