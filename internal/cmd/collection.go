// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-bridge/internal/library"
)

func newCollectionCmd(store library.RecordStore) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"coll", "c"},
		Short:   "Manage item collections",
		Long:    `Create, list, and manage collections of items.`,
	}

	cmd.AddCommand(newCollectionCreateCmd(store))
	cmd.AddCommand(newCollectionListCmd(store))
	cmd.AddCommand(newCollectionAddCmd(store))
	cmd.AddCommand(newCollectionRemoveCmd(store))

	return cmd
}

func newCollectionCreateCmd(store library.RecordStore) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := store.CreateCollection(cmd.Context(), args[0], parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection: %s (key: %s)\n", c.Name, c.Key)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Key of the parent collection")

	return cmd
}

func newCollectionListCmd(store library.RecordStore) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.resolve(); err != nil {
				return err
			}

			collections, err := store.ListCollections(cmd.Context())
			if err != nil {
				return err
			}

			if out.isJSON() {
				return writeJSON(cmd.OutOrStdout(), collections)
			}
			if len(collections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections found.")
				return nil
			}

			rows := make([][]string, 0, len(collections))
			for _, c := range collections {
				rows = append(rows, []string{c.Key, truncate(c.Name, 40), c.ParentKey, c.DateAdded.UTC().Format(library.DateFormat)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Name", "Parent", "Added"}, rows, nil))
			return nil
		},
	}

	out.addFlags(cmd)

	return cmd
}

func newCollectionAddCmd(store library.RecordStore) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-key> <item-key> [item-key...]",
		Short: "Add items to a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateMembership(cmd, store, args[0], args[1:], func(it *library.Item, id int64) bool {
				if it.InCollection(id) {
					return false
				}
				it.SetCollections(append(it.Collections, id))
				return true
			})
		},
	}
}

func newCollectionRemoveCmd(store library.RecordStore) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-key> <item-key> [item-key...]",
		Short: "Remove items from a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateMembership(cmd, store, args[0], args[1:], func(it *library.Item, id int64) bool {
				if !it.InCollection(id) {
					return false
				}
				kept := make([]int64, 0, len(it.Collections))
				for _, c := range it.Collections {
					if c != id {
						kept = append(kept, c)
					}
				}
				it.SetCollections(kept)
				return true
			})
		},
	}
}

// updateMembership applies change to each item and commits the ones it modified.
func updateMembership(cmd *cobra.Command, store library.RecordStore, collKey string, itemKeys []string, change func(*library.Item, int64) bool) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	c, err := store.CollectionByKey(ctx, collKey)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("collection not found: %s", collKey)
	}

	changed := 0
	for _, key := range itemKeys {
		it, err := store.ItemByKey(ctx, key)
		if err != nil {
			return err
		}
		if it == nil {
			fmt.Fprintf(w, "Item not found: %s\n", key)
			continue
		}
		if !change(it, c.ID) {
			continue
		}
		if err := store.Commit(ctx, it); err != nil {
			fmt.Fprintf(w, "Failed to update %s: %v\n", key, err)
			continue
		}
		changed++
	}

	fmt.Fprintf(w, "Updated %d item(s) in %s.\n", changed, c.Name)
	return nil
}
