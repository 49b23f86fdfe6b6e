// Propctl validates model files and serves the demo apps over JSON-RPC.
package main

import (
	"os"

	"src.frand.dev/pkg/buildinfo"
	"src.frand.dev/pkg/check"
	"src.frand.dev/pkg/demo"
	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prog"
	"src.frand.dev/pkg/serve"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program{},
			check.Program{NewCatalog: func() *model.Catalog { return demo.BaseCatalog(nil) }},
			serve.Program{})))
}
