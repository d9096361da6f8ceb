// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-bridge/internal/library"
)

func newTypesCmd(store library.RecordStore) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List item types and their fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.resolve(); err != nil {
				return err
			}
			schema := store.Schema()

			if out.isJSON() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"itemTypes":    schema.ItemTypes,
					"creatorTypes": schema.CreatorTypes,
				})
			}

			rows := make([][]string, 0, len(schema.ItemTypes))
			for _, t := range schema.ItemTypes {
				rows = append(rows, []string{
					t.Name,
					fmt.Sprintf("%d", len(t.Fields)),
					truncate(strings.Join(t.Fields, ", "), 60),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Type", "Fields", "Names"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	out.addFlags(cmd)

	return cmd
}
