package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/basinsync/core/sdk"
)

func initVerify(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "verify <schema-package>",
		Short: "Load a schema package and report lens-chain validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			pkg, err := sdk.LoadSchemaPackage(f)
			if err != nil {
				return fmt.Errorf("invalid schema package: %w", err)
			}

			names := make([]string, 0, len(pkg.Schemas))
			for name := range pkg.Schemas {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				history := pkg.Registry.History(name)
				fmt.Printf("%s: ok, %d lens(es), version %d\n", name, len(history), len(history))
			}
			return nil
		},
	}
	root.AddCommand(cmd)
}
