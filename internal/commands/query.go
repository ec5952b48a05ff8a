package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

func newNextCmd(opts *options) *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:       "next [trash|green]",
		Short:     "Print the next collection of a waste type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{app.ResourceTrash, app.ResourceGreen},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != app.ResourceTrash && args[0] != app.ResourceGreen {
				return fmt.Errorf("%w: %s", app.ErrUnknownResource, args[0])
			}
			_, engine, err := opts.load()
			if err != nil {
				return err
			}
			reading := app.NewTypedSensor(engine, schedule.WasteType(args[0])).Read(opts.today())
			return printReading(cmd.OutOrStdout(), reading, asJSON)
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the full sensor reading as JSON")
	return c
}

func newOnCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "on YYYY-MM-DD",
		Short: "Print which waste type is collected on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := app.ParseDate(args[0])
			if err != nil {
				return err
			}
			_, engine, err := opts.load()
			if err != nil {
				return err
			}

			if sched, ok := engine.CollectionOn(date); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sched.PickupDate.Format(schedule.DateLayout), sched.Type)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", date.Format(schedule.DateLayout), app.NoneState)
			return nil
		},
	}
}

// newDayCmd builds the today and tomorrow commands
func newDayCmd(opts *options, resource string) *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   resource,
		Short: fmt.Sprintf("Print the collection %s", resource),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, err := opts.load()
			if err != nil {
				return err
			}
			sensor, err := app.NewSensor(engine, resource)
			if err != nil {
				return err
			}
			return printReading(cmd.OutOrStdout(), sensor.Read(opts.today()), asJSON)
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the full sensor reading as JSON")
	return c
}

func printReading(w io.Writer, r app.Reading, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	state := app.NoneState
	if r.State != nil {
		state = *r.State
	}
	if date, ok := r.Attributes[app.AttrDate]; ok && date != state {
		_, err := fmt.Fprintf(w, "%s: %s (%s)\n", r.Name, state, date)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", r.Name, state)
	return err
}
