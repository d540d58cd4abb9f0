package analyzer

import (
	"math"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// SignalVolumeClimax is shared with danger detection.
const SignalVolumeClimax = "Volume Climax"

const volumePeriod = 20

// Volume votes on participation relative to the prior 20 bars.
type Volume struct{}

// NewVolume creates the volume analyzer.
func NewVolume() *Volume {
	return &Volume{}
}

func (v *Volume) Name() string    { return NameVolume }
func (v *Volume) Weight() float64 { return 8 }
func (v *Volume) MinBars() int    { return volumePeriod + 1 }

func (v *Volume) Analyze(in Input) (Result, error) {
	vols := in.Volumes
	n := len(vols)
	cur := vols[n-1]
	avg := indicator.Last(indicator.SMA(vols[:n-1], volumePeriod))

	ratio := 0.0
	if avg > 0 {
		ratio = cur / avg
	}

	price, prev := indicator.Last(in.Closes), indicator.Prev(in.Closes, 1)
	upClose, downClose := price > prev, price < prev

	var signals []core.Signal

	switch {
	case avg <= 0:
	case ratio > 1.5:
		strength := math.Min(90, 60+10*(ratio-1.5))
		if upClose {
			signals = append(signals, signal("High Volume Uptrend", core.DirectionBuy, strength))
		} else if downClose {
			signals = append(signals, signal("High Volume Downtrend", core.DirectionSell, strength))
		}
	case ratio < 0.7:
		if upClose {
			signals = append(signals, signal("Low Volume Rally", core.DirectionSell, 40))
		} else if downClose {
			signals = append(signals, signal("Low Volume Decline", core.DirectionBuy, 40))
		}
	}

	if cur > 2*vols[n-2] && cur > 2*vols[n-3] {
		d := core.DirectionNeutral
		switch {
		case downClose:
			d = core.DirectionBuy
		case upClose:
			d = core.DirectionSell
		}
		signals = append(signals, signal(SignalVolumeClimax, d, 70))
	}

	return tally(signals, ReducedCap, map[string]float64{
		"volume":       cur,
		"average":      avg,
		"volume_ratio": ratio,
	}), nil
}
