package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
)

func newExportCmd(opts *options) *cobra.Command {
	var (
		format string
		from   string
		days   int
		types  string
		output string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Export upcoming collections as ICS, CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 || days > app.MaxExportDays {
				return fmt.Errorf("--days must be between 1 and %d", app.MaxExportDays)
			}
			_, engine, err := opts.load()
			if err != nil {
				return err
			}

			start := opts.today()
			if from != "" {
				if start, err = app.ParseDate(from); err != nil {
					return err
				}
			}

			var filter []string
			if types != "" {
				filter = strings.Split(types, ",")
			}
			events := app.EventsFrom(engine.Upcoming(start, days), filter)

			icsOpts := app.ICSOptions{Name: "Waste collection"}
			if output == "" || output == "-" {
				return app.Export(cmd.OutOrStdout(), format, events, icsOpts, start, days, opts.clock.Now())
			}

			if err := writeExport(output, format, events, icsOpts, start, days, opts.clock.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d collections to %s\n", len(events), output)
			return nil
		},
	}

	c.Flags().StringVarP(&format, "format", "f", app.FormatICS, "export format: ics, csv or json")
	c.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default today)")
	c.Flags().IntVar(&days, "days", app.DefaultExportDays, "number of days to cover")
	c.Flags().StringVar(&types, "types", "", "comma-separated waste types (default all)")
	c.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return c
}

// writeExport writes the export to path and reports close errors
func writeExport(path, format string, events []app.Event, icsOpts app.ICSOptions, from time.Time, days int, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := app.Export(f, format, events, icsOpts, from, days, now); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
