package adapters

// ElectedLeadership reports leadership once the elected channel is closed,
// as returned by a controller-runtime manager's Elected().
type ElectedLeadership struct {
	elected <-chan struct{}
}

func NewElectedLeadership(elected <-chan struct{}) *ElectedLeadership {
	return &ElectedLeadership{elected: elected}
}

func (l *ElectedLeadership) IsLeader() bool {
	if l == nil || l.elected == nil {
		return false
	}
	select {
	case <-l.elected:
		return true
	default:
		return false
	}
}

// StaticLeadership is a fixed leadership answer.
type StaticLeadership bool

func (l StaticLeadership) IsLeader() bool { return bool(l) }
