package demo

import (
	"context"

	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prop"
)

// Capacity of the repeated field.
const repeatedCap = 41

// Repeater is the typed view of the Repeater model.
type Repeater struct {
	Text     *prop.Receiver[string]
	Repeated *prop.Sender[string]
}

// StartRepeater starts sending "text text" to repeated whenever text changes.
// Results that do not fit in repeated are dropped.
func StartRepeater(ctx context.Context, r *model.Registry, hostType string) ([]*prop.Task, error) {
	repeaters, err := model.Typed[Repeater](r, "Repeater", hostType)
	if err != nil {
		return nil, err
	}
	a := repeaters[0]
	return []*prop.Task{prop.Go(ctx, func(ctx context.Context) error {
		for {
			text, err := a.Text.Changed(ctx)
			if err != nil {
				return err
			}
			if s := text + " " + text; len(s) <= repeatedCap {
				a.Repeated.Send(s)
			} else {
				logger.Printf("repeated text of %d bytes dropped", len(s))
			}
		}
	})}, nil
}
