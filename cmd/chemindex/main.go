// Command chemindex builds, indexes and queries chemical structure records.
//
// Structure toolkits register themselves from init in the package that binds
// them; blank-import the binding here and name it in ingest.toolkit. Building
// with -tags memtoolkit registers the in-memory toolkit as "memory" for
// local trials.
package main

import (
	"context"
	"os"

	"github.com/turtacn/chemindex/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
