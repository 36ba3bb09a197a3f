package rotary

// Config holds configuration for a rotary encoder.
type Config struct {
	Chip      string `yaml:"chip"`
	CLKPin    int    `yaml:"clk_pin"`
	DTPin     int    `yaml:"dt_pin"`
	ButtonPin int    `yaml:"button_pin"`

	// StepsPerDetent is how many decoded steps make one click of the knob.
	// Zero means one.
	StepsPerDetent int `yaml:"steps_per_detent"`
}

// Enabled reports whether any encoder pins are configured.
func (c Config) Enabled() bool {
	return c.CLKPin != 0 || c.DTPin != 0
}

// Handlers holds callback functions for rotary events.
type Handlers struct {
	OnTurn  func(delta int) // Called with +1 (CW) or -1 (CCW) per detent
	OnPress func()          // Called when button pressed
}

// decoder turns CLK/DT edges into detent steps.
type decoder struct {
	lastCLK int
	lastDT  int
}

// edge records a level change on one line and returns the step it
// completes: +1, -1, or 0. Direction is decided on the CLK rising edge.
func (d *decoder) edge(clk bool, level int) int {
	if !clk {
		d.lastDT = level
		return 0
	}
	d.lastCLK = level
	if level != 1 {
		return 0
	}
	if d.lastDT == 0 {
		return 1
	}
	return -1
}

// detents groups decoder steps into clicks. Reversing direction part way
// through a click starts the count again.
type detents struct {
	per int
	acc int
}

func (d *detents) add(step int) int {
	if step == 0 {
		return 0
	}
	if d.per <= 1 {
		return step
	}
	if (d.acc > 0) != (step > 0) {
		d.acc = 0
	}
	d.acc += step
	if d.acc >= d.per {
		d.acc = 0
		return 1
	}
	if d.acc <= -d.per {
		d.acc = 0
		return -1
	}
	return 0
}
