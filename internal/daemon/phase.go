package daemon

// Phase is the daemon lifecycle state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLocked         Phase = "locked"
	PhaseEjecting       Phase = "ejecting"
	PhaseWaitingForDisc Phase = "waiting_for_disc"
	PhaseRipping        Phase = "ripping"
	PhaseOffloading     Phase = "offloading"
	PhaseShuttingDown   Phase = "shutting_down"
	PhaseStopped        Phase = "stopped"
)

func (p Phase) String() string {
	return string(p)
}

// Active reports whether the phase belongs to a running daemon.
func (p Phase) Active() bool {
	switch p {
	case PhaseIdle, PhaseStopped, "":
		return false
	default:
		return true
	}
}
