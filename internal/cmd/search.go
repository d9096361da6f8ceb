// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-bridge/internal/bridge"
)

func newSearchCmd(svc *bridge.Service) *cobra.Command {
	var (
		out        outputOptions
		conditions []string
		optional   []string
		limit      int
		full       bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search items in the library",
		Long: `Run a condition search. Each condition is condition:operator:value.
Without conditions, notes and attachments are excluded.

Examples:
  arc-bridge search                                   # All regular items
  arc-bridge search -c title:contains:transformer     # Title filter
  arc-bridge search -c tag:is:ml -c itemType:is:book  # All must match
  arc-bridge search --any itemType:is:book --any itemType:is:thesis
  arc-bridge search -n 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.resolve(); err != nil {
				return err
			}

			req := &bridge.SearchRequest{IncludeFullData: full && out.isJSON()}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			for _, raw := range conditions {
				c, err := parseCondition(raw, true)
				if err != nil {
					return err
				}
				req.Conditions = append(req.Conditions, c)
			}
			for _, raw := range optional {
				c, err := parseCondition(raw, false)
				if err != nil {
					return err
				}
				req.Conditions = append(req.Conditions, c)
			}

			resp, err := svc.Search(cmd.Context(), req)
			if err != nil {
				return err
			}

			if out.isJSON() {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No items found.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Items))
			for _, it := range resp.Items {
				hit, ok := it.(bridge.SearchHit)
				if !ok {
					continue
				}
				rows = append(rows, []string{hit.Key, hit.ItemType, truncate(hit.Title, 45), hit.DateModified})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d item(s):\n\n", resp.Total)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Type", "Title", "Modified"}, rows, nil))
			return nil
		},
	}

	out.addFlags(cmd)
	cmd.Flags().StringArrayVarP(&conditions, "condition", "c", nil, "Required condition (condition:operator:value)")
	cmd.Flags().StringArrayVar(&optional, "any", nil, "Optional condition; at least one must match (condition:operator:value)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of results")
	cmd.Flags().BoolVar(&full, "full", false, "Include full item data (JSON output only)")

	return cmd
}

// parseCondition splits condition:operator:value. The value may contain colons.
func parseCondition(raw string, required bool) (bridge.SearchCondition, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return bridge.SearchCondition{}, fmt.Errorf("invalid condition %q (want condition:operator:value)", raw)
	}
	return bridge.SearchCondition{
		Condition: parts[0],
		Operator:  parts[1],
		Value:     bridge.Scalar(parts[2]),
		Required:  &required,
	}, nil
}
