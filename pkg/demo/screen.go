package demo

import (
	"context"
	"fmt"

	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prop"
)

// Screen is a screen of the Screen app.
type Screen int

// Screens.
const (
	ScreenStart Screen = iota
	ScreenPay
)

var screenNames = [...]string{ScreenStart: "start", ScreenPay: "pay"}

func (s Screen) String() string {
	if s >= 0 && int(s) < len(screenNames) {
		return screenNames[s]
	}
	return fmt.Sprintf("Screen(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler, so that remote hosts see
// screen names.
func (s Screen) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseScreen parses the name of a screen.
func ParseScreen(name string) (Screen, error) {
	for i, n := range screenNames {
		if n == name {
			return Screen(i), nil
		}
	}
	return 0, fmt.Errorf("unknown screen %q", name)
}

// ScreenKind is the kind of the current_screen field.
var ScreenKind = model.NewKind("Screen", ScreenStart, ParseScreen, Screen.String)

// ScreenApp is the typed view of the Screen model.
type ScreenApp struct {
	CurrentScreen *prop.Sender[Screen]
	ConfirmStart  *prop.Receiver[prop.Unit]
	CancelPay     *prop.Receiver[prop.Unit]
}

// StartScreen starts the screen state machine: it shows the start screen until
// confirm_start is raised, then the pay screen until cancel_pay is raised, and
// repeats.
func StartScreen(ctx context.Context, r *model.Registry, hostType string) ([]*prop.Task, error) {
	apps, err := model.Typed[ScreenApp](r, "Screen", hostType)
	if err != nil {
		return nil, err
	}
	a := apps[0]
	return []*prop.Task{prop.Go(ctx, func(ctx context.Context) error {
		for {
			a.CurrentScreen.Send(ScreenStart)
			if _, err := a.ConfirmStart.Notified(ctx); err != nil {
				return err
			}
			a.CurrentScreen.Send(ScreenPay)
			if _, err := a.CancelPay.Notified(ctx); err != nil {
				return err
			}
		}
	})}, nil
}
