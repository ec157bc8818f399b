package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/store"
)

// runsCommand creates the run archive command.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage archived schedule runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())

	return cmd
}

// openStore opens the configured run archive.
func (c *CLI) openStore(cmd *cobra.Command) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.StoreConfig())
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No archived runs")
				return nil
			}
			fmt.Println(runTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 for all)")

	return cmd
}

// runsShowCommand creates the "runs show" subcommand.
func (c *CLI) runsShowCommand() *cobra.Command {
	var (
		format string
		dzn    bool
	)

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the schedule of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if dzn {
				_, err := os.Stdout.WriteString(run.DZN)
				return err
			}
			if run.Schedule == nil {
				return fmt.Errorf("run %s has no schedule", run.ID)
			}
			switch format {
			case formatCSV:
				return run.Schedule.WriteCSV(os.Stdout)
			case formatJSON:
				return run.Schedule.WriteJSON(os.Stdout)
			default:
				return fmt.Errorf("invalid format: %s (must be 'csv' or 'json')", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatCSV, "output format: csv, json")
	cmd.Flags().BoolVar(&dzn, "dzn", false, "print the solver data file instead of the schedule")

	return cmd
}

// runsDeleteCommand creates the "runs delete" subcommand.
func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete archived runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			printSuccess("Deleted %d runs", len(args))
			return nil
		},
	}
}

// runTable renders archived runs as a table.
func runTable(runs []*store.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(r.NumPackets),
			strconv.Itoa(r.Hyperperiod),
			strconv.Itoa(len(r.Warnings)),
			r.SolverID,
		}
	}
	headers := []string{"ID", "Created", "Packets", "Hyperperiod", "Warnings", "Solver"}
	return newTable(headers, rows, func(row, col int) lipgloss.Style {
		if col == 0 {
			return StyleHighlight
		}
		return lipgloss.NewStyle()
	}).Render()
}
