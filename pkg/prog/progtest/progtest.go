// Package progtest provides a framework for testing subprograms.
//
// The entry point is the Test function, which accepts a *testing.T, the
// Program to test and a variadic number of cases. Cases are constructed with
// ThatProg followed by methods that add constraints on the case:
//
//	Test(t, p,
//		ThatProg("-version").WritesStdout("v0.1.0\n"),
//		ThatProg("-bad").ExitsWith(2).WritesStderrContaining("-bad"))
package progtest

import (
	"io"
	"os"
	"strings"
	"testing"

	"src.frand.dev/pkg/prog"
)

// Case is a test case for Test.
type Case struct {
	args []string
	want result
}

type result struct {
	exitStatus int
	stdout     output
	stderr     output
}

type output struct {
	content string
	partial bool
}

// ThatProg returns a new Case that runs the program with the given arguments.
func ThatProg(args ...string) Case {
	return Case{args: args}
}

// DoesNothing returns c unchanged. It marks a case that should exit with 0
// and write nothing.
func (c Case) DoesNothing() Case {
	return c
}

// ExitsWith returns an altered Case that requires the program to exit with the
// given status.
func (c Case) ExitsWith(code int) Case {
	c.want.exitStatus = code
	return c
}

// WritesStdout returns an altered Case that requires the program to write
// exactly s to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.stdout = output{content: s}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the stdout of
// the program to contain s.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.stdout = output{content: s, partial: true}
	return c
}

// WritesStderr returns an altered Case that requires the program to write
// exactly s to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.stderr = output{content: s}
	return c
}

// WritesStderrContaining returns an altered Case that requires the stderr of
// the program to contain s.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.stderr = output{content: s, partial: true}
	return c
}

// Test runs cases against p.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(t, p, c.args...)
			if exit != c.want.exitStatus {
				t.Errorf("exit status = %d, want %d", exit, c.want.exitStatus)
			}
			checkOutput(t, "stdout", stdout, c.want.stdout)
			checkOutput(t, "stderr", stderr, c.want.stderr)
		})
	}
}

func checkOutput(t *testing.T, name, got string, want output) {
	t.Helper()
	switch {
	case want.partial:
		if !strings.Contains(got, want.content) {
			t.Errorf("got %s %q, want it to contain %q", name, got, want.content)
		}
	case got != want.content:
		t.Errorf("got %s %q, want %q", name, got, want.content)
	}
}

// Run runs p with the given arguments, and returns its exit status and what it
// wrote to stdout and stderr. Stdin is empty.
func Run(t *testing.T, p prog.Program, args ...string) (int, string, string) {
	t.Helper()
	r0, w0 := pipe(t)
	w0.Close()
	defer r0.Close()
	r1, w1 := pipe(t)
	r2, w2 := pipe(t)

	// Read concurrently, so that programs writing more than a pipe buffer do
	// not deadlock.
	stdout, stderr := readAsync(r1), readAsync(r2)
	exit := prog.Run([3]*os.File{r0, w1, w2}, append([]string{"propctl"}, args...), p)
	w1.Close()
	w2.Close()
	return exit, <-stdout, <-stderr
}

func pipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	return r, w
}

func readAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		defer r.Close()
		b, _ := io.ReadAll(r)
		ch <- string(b)
	}()
	return ch
}
