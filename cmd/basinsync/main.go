// Command basinsync is a developer tool for inspecting a replica's
// persistent store directly, without going through an Sdk, and for
// verifying a schema package's lens chain.
// Mirrors the teacher's cmd package's cobra root-command wiring.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "basinsync",
		Short: "basinsync developer CLI",
		Long:  "Inspect a basinsync replica's persistent document store and verify schema packages.",
	}

	initInspect(root)
	initVerify(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
