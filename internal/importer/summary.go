package importer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// FileSummary is the outcome of importing one file.
type FileSummary struct {
	Path        string
	Date        string // date of the first message, YYYY-MM-DD
	Orders      int
	OrdersEmpty int
	Items       int
	Duplicates  int
	Errors      int
}

// Summary aggregates a whole run.
type Summary struct {
	Files        []FileSummary
	FilesSkipped int
	OrdersStored int
	OrdersEmpty  int
	Items        int
	Duplicates   int
	Errors       int
	DryRun       bool
	StatePath    string
}

func (s *Summary) add(fs FileSummary) {
	s.Files = append(s.Files, fs)
	s.OrdersStored += fs.Orders
	s.OrdersEmpty += fs.OrdersEmpty
	s.Items += fs.Items
	s.Duplicates += fs.Duplicates
	s.Errors += fs.Errors
}

// Format renders the summary grouped by date, for the terminal.
func (s *Summary) Format() string {
	byDate := make(map[string][]FileSummary)
	for _, f := range s.Files {
		date := f.Date
		if date == "" {
			date = "unknown"
		}
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var sb strings.Builder
	sb.WriteString("=== Import Summary ===\n")
	for _, date := range dates {
		files := byDate[date]
		orders := 0
		for _, f := range files {
			orders += f.Orders
		}
		fmt.Fprintf(&sb, "\n%s (%d files, %d orders)\n", date, len(files), orders)
		for _, f := range files {
			fmt.Fprintf(&sb, "  - %s: %d orders, %d items, %d empty", filepath.Base(f.Path), f.Orders, f.Items, f.OrdersEmpty)
			if f.Duplicates > 0 {
				fmt.Fprintf(&sb, ", %d duplicates", f.Duplicates)
			}
			if f.Errors > 0 {
				fmt.Fprintf(&sb, " (%d errors)", f.Errors)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "\nFiles imported: %d (skipped unchanged: %d)\n", len(s.Files), s.FilesSkipped)
	fmt.Fprintf(&sb, "Orders: %d, items: %d, empty: %d, duplicates: %d, errors: %d\n",
		s.OrdersStored, s.Items, s.OrdersEmpty, s.Duplicates, s.Errors)
	if s.DryRun {
		sb.WriteString("Mode: DRY RUN (nothing stored)\n")
	}
	fmt.Fprintf(&sb, "State file: %s\n", s.StatePath)
	return sb.String()
}
