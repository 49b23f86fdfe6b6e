package demo

import (
	"context"

	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prop"
)

// Adder is the typed view of the Adder model.
type Adder struct {
	X   *prop.Receiver[int32]
	Y   *prop.Receiver[int32]
	Sum *prop.Sender[int32]
}

// StartAdder starts sending x + y to sum whenever x or y changes.
func StartAdder(ctx context.Context, r *model.Registry, hostType string) ([]*prop.Task, error) {
	adders, err := model.Typed[Adder](r, "Adder", hostType)
	if err != nil {
		return nil, err
	}
	a := adders[0]
	return []*prop.Task{prop.Go(ctx, func(ctx context.Context) error {
		return addLoop(ctx, a.X, a.Y, a.Sum)
	})}, nil
}

func addLoop(ctx context.Context, x, y *prop.Receiver[int32], sum *prop.Sender[int32]) error {
	g := prop.Join2[int32, int32](x, y)
	for {
		v, err := g.Notified(ctx)
		if err != nil {
			return err
		}
		sum.Send(v.V1 + v.V2)
	}
}

// AdderArray is the typed view of one AdderArray instance.
type AdderArray struct {
	X   []*prop.Receiver[int32]
	Y   []*prop.Receiver[int32]
	Sum []*prop.Sender[int32]
}

// StartAdderArray starts one adder per element of every AdderArray instance,
// so that sum[j] follows x[j] + y[j].
func StartAdderArray(ctx context.Context, r *model.Registry, hostType string) ([]*prop.Task, error) {
	arrays, err := model.Typed[AdderArray](r, "AdderArray", hostType)
	if err != nil {
		return nil, err
	}
	var tasks []*prop.Task
	for _, a := range arrays {
		for j := range a.Sum {
			x, y, sum := a.X[j], a.Y[j], a.Sum[j]
			tasks = append(tasks, prop.Go(ctx, func(ctx context.Context) error {
				return addLoop(ctx, x, y, sum)
			}))
		}
	}
	return tasks, nil
}
