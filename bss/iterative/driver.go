// Package iterative runs fixed-point iterations with callback hooks and
// optional loss recording.
package iterative

import "fmt"

// Updater is the model driven by a [Driver].
type Updater interface {
	// UpdateOnce performs one full iteration.
	UpdateOnce() error
	// Loss returns the current value of the objective.
	Loss() (float64, error)
}

// Callback observes the model after an iteration. A returned error aborts
// the run.
type Callback func(state any) error

// Driver runs an [Updater] for a fixed number of iterations.
type Driver struct {
	Callbacks  []Callback
	RecordLoss bool

	losses []float64
}

// Losses returns the recorded loss sequence. Its first entry is the loss
// before any update when the last Run used initialCall.
func (d *Driver) Losses() []float64 { return d.losses }

// Run performs nIter updates. With initialCall set, callbacks and loss
// recording also happen once before the first update. The loss history is
// cleared at the start of every run.
func (d *Driver) Run(u Updater, nIter int, initialCall bool) error {
	if nIter < 0 {
		return fmt.Errorf("iterative: negative iteration count %d", nIter)
	}
	d.losses = d.losses[:0]

	if initialCall {
		if err := d.observe(u, 0); err != nil {
			return err
		}
	}
	for it := 1; it <= nIter; it++ {
		if err := u.UpdateOnce(); err != nil {
			return fmt.Errorf("iterative: iteration %d: %w", it, err)
		}
		if err := d.observe(u, it); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) observe(u Updater, it int) error {
	for i, cb := range d.Callbacks {
		if err := cb(u); err != nil {
			return fmt.Errorf("iterative: callback %d after iteration %d: %w", i, it, err)
		}
	}
	if !d.RecordLoss {
		return nil
	}
	loss, err := u.Loss()
	if err != nil {
		return fmt.Errorf("iterative: loss after iteration %d: %w", it, err)
	}
	d.losses = append(d.losses, loss)
	return nil
}
