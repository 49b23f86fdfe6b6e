package logutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSetOutput_RedirectsExistingLoggers(t *testing.T) {
	logger := GetLogger("[test] ")
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard) })

	logger.Println("hello")

	if got := buf.String(); !strings.Contains(got, "[test] hello") {
		t.Errorf("got log %q, want it to contain %q", got, "[test] hello")
	}
}

func TestSetOutputFile(t *testing.T) {
	logger := GetLogger("[file] ")
	fname := filepath.Join(t.TempDir(), "log")
	if err := SetOutputFile(fname); err != nil {
		t.Fatal(err)
	}
	logger.Println("to file")
	// Closes the file.
	if err := SetOutputFile(""); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "[file] to file") {
		t.Errorf("got file content %q", content)
	}
}

var linePattern = regexp.MustCompile(`^\d{4}/\d\d/\d\d \d\d:\d\d:\d\d \[line\] a message\n$`)

func TestGetLogger_LineLayout(t *testing.T) {
	logger := GetLogger("[line] ")
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard) })

	logger.Println("a message")

	if got := buf.String(); !linePattern.MatchString(got) {
		t.Errorf("got log %q, want timestamp, prefix and message", got)
	}
}
