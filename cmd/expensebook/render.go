package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"expensebook/internal/core"
	"expensebook/internal/grouping"
	"expensebook/internal/paging"
)

func renderList(out io.Writer, snap paging.Snapshot) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, g := range snap.Groups {
		if snap.Mode != grouping.ByIdentity {
			fmt.Fprintf(tw, "%s\t\t%s\t\n", g.Key, g.Total())
		}
		for _, e := range g.Expenses {
			category := "-"
			if e.Category != nil {
				category = e.Category.Name
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", e.Date, e.Name, e.Amount, category, e.ID)
		}
	}
	tw.Flush()

	count := grouping.Count(snap.Groups)
	more := ""
	if !snap.Last {
		more = ", more available"
	}
	fmt.Fprintf(out, "%d expenses, %d pages loaded%s\n", count, snap.Page+1, more)
}

func renderCategories(out io.Writer, items []core.Category) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range items {
		color := c.Color
		if color == "" {
			color = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, color, c.ID)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d categories\n", len(items))
}
