package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basinsync/core/internal/storagekv"
	"github.com/basinsync/core/sdk"
)

func initInspect(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "inspect <db-path> <doc-id>",
		Short: "Dump a document's store/expired counts and schema name",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			dbPath, idStr := args[0], args[1]

			docID, err := sdk.DecodeID(idStr)
			if err != nil {
				return err
			}

			kv, err := storagekv.Open(dbPath)
			if err != nil {
				return err
			}
			defer kv.Close()

			schemaName, found, err := kv.SchemaNameFor(docID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("document %s is not registered in %s", idStr, dbPath)
			}

			delta, err := kv.LoadDoc(docID)
			if err != nil {
				return err
			}

			fmt.Printf("doc_id:  %s\n", idStr)
			fmt.Printf("schema:  %s\n", schemaName)
			fmt.Printf("store:   %d paths\n", len(delta.Store))
			fmt.Printf("expired: %d tombstones\n", len(delta.Expired))
			return nil
		},
	}
	root.AddCommand(cmd)
}
