// Package sys provides system utilities with the same API across OSes.
package sys

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
)

// IsATTY determines whether the given file is a terminal.
func IsATTY(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NotifyStop returns a channel on which interrupt and termination signals are
// delivered, and a function that stops the delivery.
func NotifyStop() (<-chan os.Signal, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh, func() { signal.Stop(sigCh) }
}
