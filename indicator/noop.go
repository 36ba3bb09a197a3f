package indicator

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Show implements Indicator.Show.
func (n *Noop) Show(State) {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
