package iterative

import (
	"errors"
	"testing"
)

type counter struct {
	n       int
	failAt  int
	lossErr error
}

func (c *counter) UpdateOnce() error {
	c.n++
	if c.failAt > 0 && c.n == c.failAt {
		return errors.New("boom")
	}
	return nil
}

func (c *counter) Loss() (float64, error) {
	if c.lossErr != nil {
		return 0, c.lossErr
	}
	return 1 / float64(c.n+1), nil
}

func TestRunRecordsInitialLoss(t *testing.T) {
	d := Driver{RecordLoss: true}
	c := &counter{}
	if err := d.Run(c, 5, true); err != nil {
		t.Fatal(err)
	}
	if c.n != 5 {
		t.Fatalf("updates=%d want=5", c.n)
	}
	got := d.Losses()
	if len(got) != 6 {
		t.Fatalf("len(losses)=%d want=6", len(got))
	}
	if got[0] != 1 || got[5] != 1.0/6 {
		t.Fatalf("losses=%v", got)
	}
}

func TestRunWithoutInitialCall(t *testing.T) {
	d := Driver{RecordLoss: true}
	if err := d.Run(&counter{}, 3, false); err != nil {
		t.Fatal(err)
	}
	if n := len(d.Losses()); n != 3 {
		t.Fatalf("len(losses)=%d want=3", n)
	}
}

func TestRunNoLossWhenDisabled(t *testing.T) {
	d := Driver{}
	c := &counter{lossErr: errors.New("loss must not be computed")}
	if err := d.Run(c, 3, true); err != nil {
		t.Fatal(err)
	}
	if len(d.Losses()) != 0 {
		t.Fatalf("losses=%v want none", d.Losses())
	}
}

func TestCallbacksInOrder(t *testing.T) {
	var order []string
	d := Driver{Callbacks: []Callback{
		func(any) error { order = append(order, "a"); return nil },
		func(any) error { order = append(order, "b"); return nil },
	}}
	if err := d.Run(&counter{}, 2, true); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "a", "b", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("order=%v want=%v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v want=%v", order, want)
		}
	}
}

func TestCallbackReceivesModel(t *testing.T) {
	c := &counter{}
	d := Driver{Callbacks: []Callback{func(state any) error {
		if state.(*counter) != c {
			t.Fatal("callback got a different model")
		}
		return nil
	}}}
	if err := d.Run(c, 1, false); err != nil {
		t.Fatal(err)
	}
}

func TestCallbackErrorAborts(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	d := Driver{Callbacks: []Callback{func(any) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	}}}
	c := &counter{}
	err := d.Run(c, 10, true)
	if !errors.Is(err, stop) {
		t.Fatalf("err=%v want stop", err)
	}
	if c.n != 1 {
		t.Fatalf("updates=%d want=1", c.n)
	}
}

func TestUpdateErrorAborts(t *testing.T) {
	d := Driver{RecordLoss: true}
	c := &counter{failAt: 3}
	if err := d.Run(c, 10, true); err == nil {
		t.Fatal("expected error")
	}
	if n := len(d.Losses()); n != 3 {
		t.Fatalf("len(losses)=%d want=3", n)
	}
}

func TestNegativeIterations(t *testing.T) {
	var d Driver
	if err := d.Run(&counter{}, -1, false); err == nil {
		t.Fatal("expected error")
	}
}
