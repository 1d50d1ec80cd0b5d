package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/saltyorg/projects/internal/database"
)

func summary(p *database.Project) string {
	return fmt.Sprintf("%d: %s", p.ProjectID, p.ProjectName)
}

func printProjectList(w io.Writer, projects []database.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "   No projects yet.")
		return
	}
	for i := range projects {
		fmt.Fprintln(w, "   "+summary(&projects[i]))
	}
}

func printProject(w io.Writer, p *database.Project) {
	fmt.Fprintf(w, "   ID=%d\n", p.ProjectID)
	fmt.Fprintf(w, "   name=%s\n", p.ProjectName)
	fmt.Fprintf(w, "   estimatedHours=%s\n", hours(p.EstimatedHours))
	fmt.Fprintf(w, "   actualHours=%s\n", hours(p.ActualHours))
	fmt.Fprintf(w, "   difficulty=%s\n", optionalInt(p.Difficulty))
	fmt.Fprintf(w, "   notes=%s\n", optionalString(p.Notes))

	if len(p.Materials) > 0 {
		fmt.Fprintln(w, "   Materials:")
		for _, m := range p.Materials {
			fmt.Fprintf(w, "      %s (required: %s, cost: %s)\n", m.MaterialName, optionalInt(m.NumRequired), hours(m.Cost))
		}
	}
	if len(p.Steps) > 0 {
		fmt.Fprintln(w, "   Steps:")
		for _, s := range p.Steps {
			fmt.Fprintf(w, "      %d. %s\n", s.StepOrder, s.StepText)
		}
	}
	if len(p.Categories) > 0 {
		fmt.Fprintln(w, "   Categories:")
		for _, c := range p.Categories {
			fmt.Fprintf(w, "      %s\n", c.CategoryName)
		}
	}
}

func hours(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(database.DecimalPlaces)
}

func optionalInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func optionalString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
