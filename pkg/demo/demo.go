// Package demo contains small apps built on models: an adder, an array of
// adders, a two-screen state machine and a text repeater.
package demo

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"src.frand.dev/pkg/errutil"
	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/host/memhost"
	"src.frand.dev/pkg/logutil"
	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prop"
)

var logger = logutil.GetLogger("[demo] ")

// ModelsYAML is the model file of the apps.
//
//go:embed models.yaml
var ModelsYAML string

// DefaultPropLen is the array length of AdderArray fields when none is given.
const DefaultPropLen = 2

// BaseCatalog returns a catalog with the kinds and lengths the models of the
// apps use, but not the models themselves. The propLen function gives the
// PROP_LEN cell, and is called once, when the first model using it is built.
// A nil propLen means DefaultPropLen.
func BaseCatalog(propLen func() int) *model.Catalog {
	if propLen == nil {
		propLen = func() int { return DefaultPropLen }
	}
	cat := model.NewCatalog()
	cat.DefineCell("PROP_LEN", propLen)
	if err := cat.RegisterKind(ScreenKind); err != nil {
		// The catalog is new, so the name cannot be taken.
		panic(err)
	}
	return cat
}

// NewCatalog returns a catalog with the models of the apps, on top of
// BaseCatalog(propLen).
func NewCatalog(propLen func() int) (*model.Catalog, error) {
	cat := BaseCatalog(propLen)
	schema, err := model.LoadYAML(strings.NewReader(ModelsYAML))
	if err != nil {
		return nil, err
	}
	if err := cat.Load(schema); err != nil {
		return nil, err
	}
	return cat, nil
}

// AddGlobals adds the globals of the apps to h.
func AddGlobals(h *memhost.Host) {
	h.AddGlobal("Adder", host.Row{"x": int32(0), "y": int32(0), "sum": int32(0)})
	h.AddGlobal("AdderArray", host.Row{})
	h.AddGlobal("Screen", host.Row{"current_screen": ScreenStart})
	h.AddGlobal("Repeater", host.Row{"text": "", "repeated": ""})
}

// Start starts all the apps on the models bound to hosts of hostType.
func Start(ctx context.Context, r *model.Registry, hostType string) ([]*prop.Task, error) {
	starters := []struct {
		name  string
		start func(context.Context, *model.Registry, string) ([]*prop.Task, error)
	}{
		{"adder", StartAdder},
		{"adder array", StartAdderArray},
		{"screen", StartScreen},
		{"repeater", StartRepeater},
	}
	var tasks []*prop.Task
	var errs []error
	for _, s := range starters {
		ts, err := s.start(ctx, r, hostType)
		if err != nil {
			errs = append(errs, fmt.Errorf("start %s: %w", s.name, err))
			continue
		}
		logger.Printf("started %s with %d tasks", s.name, len(ts))
		tasks = append(tasks, ts...)
	}
	if err := errutil.Multi(errs...); err != nil {
		prop.StopAll(tasks)
		return nil, err
	}
	return tasks, nil
}
