package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"WebStore/internal/catalog"
	"WebStore/internal/view"
)

func newShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the primary catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := g.client().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return view.WriteText(cmd.OutOrStdout(), st)
		},
	}
}

// newAdjustCmd builds inc/dec. The target is either an item ID or "#N" for
// the item at position N.
func newAdjustCmd(g *globals, name string, delta int64) *cobra.Command {
	short := "Increase an item's price by 1"
	if delta < 0 {
		short = "Decrease an item's price by 1"
	}

	return &cobra.Command{
		Use:   name + " <id|#index>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			ctx := cmd.Context()

			index, isIndex, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			var it catalog.Item
			switch {
			case isIndex && delta > 0:
				it, err = c.IncrementAt(ctx, index)
			case isIndex:
				it, err = c.DecrementAt(ctx, index)
			case delta > 0:
				it, err = c.IncrementPrice(ctx, args[0])
			default:
				it, err = c.DecrementPrice(ctx, args[0])
			}
			if errors.Is(err, catalog.ErrRemoteNotFound) {
				return fmt.Errorf("no such item: %s", args[0])
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", it.Name, it.Price)
			return err
		},
	}
}

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reprint the primary catalog on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			err := g.client().Watch(cmd.Context(), func(st catalog.State) error {
				if _, err := fmt.Fprintf(out, "-- version %d\n", st.Version); err != nil {
					return err
				}
				return view.WriteText(out, st)
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}

func parseTarget(arg string) (int, bool, error) {
	if !strings.HasPrefix(arg, "#") {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil {
		return 0, false, fmt.Errorf("bad index %q", arg)
	}
	return n, true, nil
}
