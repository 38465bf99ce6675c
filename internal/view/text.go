package view

import (
	"fmt"
	"io"
	"text/tabwriter"

	"WebStore/internal/catalog"
)

const heading = "Cars:"

func WriteText(w io.Writer, st catalog.State) error {
	if _, err := fmt.Fprintln(w, heading); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range Rows(st, nil) {
		fmt.Fprintf(tw, "#%d\t%s\t%d\t%s\n", r.Position, r.Name, r.Price, r.ID)
	}
	return tw.Flush()
}
