package sys

import (
	"os"
	"testing"
)

func TestIsATTY_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	if IsATTY(r) || IsATTY(w) {
		t.Errorf("IsATTY true for a pipe")
	}
}

func TestNotifyStop(t *testing.T) {
	sigCh, stop := NotifyStop()
	stop()
	select {
	case sig := <-sigCh:
		t.Errorf("unexpected signal %v", sig)
	default:
	}
}
