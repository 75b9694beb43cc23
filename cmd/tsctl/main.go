// Command tsctl is an administrative CLI over a ferricstore profile: a
// directory holding one DiskLayerStore (layer file sets) and one
// leveldb-backed LabelStore (named CAS pointers). Each subcommand is
// self-contained; see store.go for the shared profile-opening helper.
package main

import (
	"github.com/regulumdb/ferricstore/pkg/cmdmain"
)

func main() {
	cmdmain.Main()
}
