package check

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.frand.dev/pkg/demo"
	"src.frand.dev/pkg/model"
	. "src.frand.dev/pkg/prog/progtest"
)

const goodYAML = `
consts:
  LEN: 2
models:
  - name: Adder
    mode: singleton
    len: LEN
    fields:
      - in x: int
      - in y: int
      - out sum: int
  - name: Button
    fields:
      - in clicked: ()
`

const badYAML = `
models:
  - name: A
    fields:
      - "out done: ()"
      - "in x: complex"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProgram(t *testing.T) {
	good := writeFile(t, "good.yaml", goodYAML)
	bad := writeFile(t, "bad.yaml", badYAML)
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	Test(t, Program{},
		ThatProg("check", good).WritesStdout("ok "+good+": 2 models\n"),
		ThatProg("check", bad).ExitsWith(1).WritesStdout(
			"FAIL "+bad+"\n"+
				"    model A: field done: `()` type cannot be used with `out` direction\n"+
				"    model A: field x: unknown type \"complex\"\n"),
		ThatProg("check", good, missing).ExitsWith(1).
			WritesStdoutContaining("ok "+good+": 2 models\nFAIL "+missing+"\n"),
		ThatProg("check").ExitsWith(2).
			WritesStderrContaining("check needs at least one file\nUsage:"),
		ThatProg().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestProgram_JSON(t *testing.T) {
	good := writeFile(t, "good.yaml", goodYAML)
	bad := writeFile(t, "bad.yaml", badYAML)

	exit, stdout, _ := Run(t, Program{}, "-json", "check", good, bad)
	if exit != 1 {
		t.Errorf("exit status = %d, want 1", exit)
	}
	var results []Result
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	want := []Result{
		{File: good, Models: []string{"Adder", "Button"}, Errors: []string{}},
		{File: bad, Models: []string{}, Errors: []string{
			"model A: field done: `()` type cannot be used with `out` direction",
			"model A: field x: unknown type \"complex\"",
		}},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}

func TestProgram_CustomCatalog(t *testing.T) {
	apps := writeFile(t, "apps.yaml", demo.ModelsYAML)

	Test(t, Program{NewCatalog: func() *model.Catalog { return demo.BaseCatalog(nil) }},
		ThatProg("check", apps).WritesStdout("ok "+apps+": 4 models\n"))
	// Without the Screen kind and the PROP_LEN cell, the file is invalid.
	Test(t, Program{},
		ThatProg("check", apps).ExitsWith(1).WritesStdoutContaining("FAIL "+apps))
}
