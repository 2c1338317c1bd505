// Command viewctl inspects and edits website views from the command line.
//
// Views are read from a YAML fixture into an in-memory store, or from a
// PostgreSQL database when a DSN is given. With --state, the in-memory store
// is loaded from and saved back to a CBOR dump so that edits persist across
// runs:
//
//	viewctl --fixture site.yaml --state site.cbor resolve website.layout --website 2
//	viewctl --state site.cbor write 12 name="Home" --website 2
//	viewctl --state site.cbor unlink 12 --website 2
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
