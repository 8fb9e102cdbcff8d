package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postventa/internal/store"
)

const defaultHeadLimit = 5

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect the history table",
	}

	var headLimit int
	head := &cobra.Command{
		Use:   "head",
		Short: "Print the first stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st store.Store) error {
				records, err := st.Head(cmd.Context(), headLimit)
				if err != nil {
					return err
				}
				return printRecords(a.out, records)
			})
		},
	}
	head.Flags().IntVarP(&headLimit, "limit", "n", defaultHeadLimit, "number of records (0 for all)")

	columns := &cobra.Command{
		Use:   "columns",
		Short: "Print the history table columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st store.Store) error {
				cols, err := st.Columns(cmd.Context())
				if err != nil {
					return err
				}
				tw := newTable(a.out)
				fmt.Fprintln(tw, "COLUMNA\tTIPO")
				for _, c := range cols {
					fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Type)
				}
				return tw.Flush()
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print record counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printCounts(cmd, store.DimStatus, 0)
		},
	}

	var unitLimit int
	units := &cobra.Command{
		Use:   "units",
		Short: "Print the units with the most records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := unitLimit
			if limit == 0 {
				limit = a.cfg.Report.TopUnits
			}
			return a.printCounts(cmd, store.DimUnit, limit)
		},
	}
	units.Flags().IntVarP(&unitLimit, "limit", "n", 0, "number of units (default REPORT_TOP_UNITS)")

	var byLimit int
	by := &cobra.Command{
		Use:       "by DIMENSION",
		Short:     "Print record counts grouped by a column",
		Long:      "DIMENSION is one of: status, unit, chapter, area, item, report_date.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"status", "unit", "chapter", "area", "item", "report_date"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := store.ParseDimension(args[0])
			if err != nil {
				return err
			}
			return a.printCounts(cmd, dim, byLimit)
		},
	}
	by.Flags().IntVarP(&byLimit, "limit", "n", 0, "number of groups (0 for all)")

	cmd.AddCommand(head, columns, status, units, by)
	return cmd
}

func (a *app) printCounts(cmd *cobra.Command, dim store.Dimension, limit int) error {
	return a.withStore(cmd.Context(), func(st store.Store) error {
		counts, err := st.CountBy(cmd.Context(), dim, limit)
		if err != nil {
			return err
		}
		tw := newTable(a.out)
		fmt.Fprintf(tw, "%s\tREGISTROS\n", dimensionHeading(dim))
		for _, c := range counts {
			fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.Count)
		}
		return tw.Flush()
	})
}

func printRecords(w io.Writer, records []store.StoredRecord) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tAREA\tITEM\tDETALLE\tCAPITULO\tCASA\tESTADO\tFECHA")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Area, r.Item, r.Detail, r.Chapter, r.Unit, r.Status, r.ReportDate)
	}
	return tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func dimensionHeading(dim store.Dimension) string {
	switch dim {
	case store.DimStatus:
		return "ESTADO"
	case store.DimUnit:
		return "CASA"
	case store.DimChapter:
		return "CAPITULO"
	case store.DimArea:
		return "AREA"
	case store.DimItem:
		return "ITEM"
	case store.DimReportDate:
		return "FECHA"
	default:
		return string(dim)
	}
}
