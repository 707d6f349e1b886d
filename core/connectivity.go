package core

// ConnectivityState is the process-wide online/offline state as last
// reported by the environment.
type ConnectivityState int

const (
	StateOffline ConnectivityState = iota
	StateOnline
)

func (s ConnectivityState) String() string {
	if s == StateOnline {
		return "online"
	}
	return "offline"
}
