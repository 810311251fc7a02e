package refdriver

import "github.com/roach88/rrgate/internal/driver"

// Call describes one driver call for an Observer.
type Call struct {
	Name   string
	Thread driver.ThreadID
	Args   []any
}

// Observer receives driver calls as they happen. It must be safe for
// concurrent use.
type Observer func(Call)

func (d *Driver) observe(c Call) {
	if d.observer != nil {
		d.observer(c)
	}
}
