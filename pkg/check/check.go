// Package check implements the check subprogram, which validates model files.
package check

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prog"
	"src.frand.dev/pkg/sys"
)

// Program is the check subprogram. It validates each model file named on the
// command line, and exits with 1 if any of them is invalid.
type Program struct {
	// NewCatalog returns the catalog each file is loaded into. It defines the
	// kinds and lengths the files may refer to. A nil NewCatalog means
	// model.NewCatalog.
	NewCatalog func() *model.Catalog
}

// Result is the result of checking one file, as written with -json.
type Result struct {
	File   string   `json:"file"`
	Models []string `json:"models"`
	Errors []string `json:"errors"`
}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	files, err := prog.Command("check", args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return prog.BadUsage("check needs at least one file")
	}
	newCatalog := p.NewCatalog
	if newCatalog == nil {
		newCatalog = model.NewCatalog
	}

	results := make([]Result, len(files))
	failed := false
	for i, file := range files {
		results[i] = checkFile(newCatalog(), file)
		if len(results[i].Errors) > 0 {
			failed = true
		}
	}

	if f.JSON {
		enc := json.NewEncoder(fds[1])
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(fds[1], results, sys.IsATTY(fds[1]))
	}
	if failed {
		return prog.Exit(1)
	}
	return nil
}

func checkFile(cat *model.Catalog, file string) Result {
	r := Result{File: file, Models: []string{}, Errors: []string{}}
	err := loadFile(cat, file)
	if err != nil {
		for _, e := range unpack(err) {
			r.Errors = append(r.Errors, e.Error())
		}
		return r
	}
	r.Models = cat.Names()
	return r
}

func loadFile(cat *model.Catalog, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	schema, err := model.LoadYAML(fh)
	if err != nil {
		return err
	}
	return cat.Load(schema)
}

// Flattens errors aggregated with errutil.Multi.
func unpack(err error) []error {
	if m, ok := err.(interface{ Unwrap() []error }); ok {
		return m.Unwrap()
	}
	return []error{err}
}

var (
	plainMarks = [2]string{"ok", "FAIL"}
	ttyMarks   = [2]string{"\033[32m✔\033[m", "\033[31m✘\033[m"}
)

func printResults(w io.Writer, results []Result, tty bool) {
	marks := plainMarks
	if tty {
		marks = ttyMarks
	}
	for _, r := range results {
		if len(r.Errors) == 0 {
			fmt.Fprintf(w, "%s %s: %d models\n", marks[0], r.File, len(r.Models))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", marks[1], r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
}
