package components

import "github.com/henri123lemoine/shove/internal/git"

const progressNone = "preparing..."

// ProgressLabel returns the gauge label and percent for a push progress
// snapshot. A nil snapshot means no progress was reported yet.
func ProgressLabel(p *git.PushProgress) (string, uint8) {
	if p == nil {
		return progressNone, 0
	}
	pct := p.Progress
	if pct > 100 {
		pct = 100
	}
	return progressStateName(p.State), pct
}

func progressStateName(s git.PushProgressState) string {
	switch s {
	case git.PushProgressAddingObjects:
		return "adding objects"
	case git.PushProgressDeltas:
		return "computing deltas"
	case git.PushProgressPushing:
		return "pushing"
	default:
		return s.String()
	}
}
