package indicator

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti fans every state out to each of inds.
func NewMulti(inds ...Indicator) *Multi {
	return &Multi{indicators: inds}
}

// Show implements Indicator.Show.
func (m *Multi) Show(s State) {
	for _, ind := range m.indicators {
		ind.Show(s)
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
