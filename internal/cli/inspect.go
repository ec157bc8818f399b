package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/schedule"
	"github.com/matzehuels/nocsched/pkg/store"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect [run-id | schedule.csv | schedule.json]",
		Short: "Browse a schedule interactively",
		Long: `Browse a schedule interactively.

The argument is either the ID of an archived run or a schedule file written
by "nocsched schedule". Without an argument the most recent run is opened.
Packets that miss their window are shown in red.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			title, s, err := c.loadSchedule(cmd.Context(), ref)
			if err != nil {
				return err
			}

			if plain {
				fmt.Println(StyleTitle.Render(title))
				fmt.Println(scheduleTable(s.Entries, -1))
				return nil
			}

			m := NewScheduleModel(title, s)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the schedule table instead of opening the browser")

	return cmd
}

// loadSchedule resolves ref to a schedule and a display title.
func (c *CLI) loadSchedule(ctx context.Context, ref string) (string, *schedule.Schedule, error) {
	if ref != "" && !store.ValidID(ref) {
		s, err := readScheduleFile(ref)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s (hyperperiod %d)", filepath.Base(ref), s.Hyperperiod), s, nil
	}

	cfg, err := c.config()
	if err != nil {
		return "", nil, err
	}
	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return "", nil, err
	}
	defer st.Close()

	var run *store.Run
	if ref == "" {
		runs, err := st.List(ctx, 1)
		if err != nil {
			return "", nil, err
		}
		if len(runs) == 0 {
			return "", nil, fmt.Errorf("no archived runs; pass a schedule file")
		}
		run = runs[0]
	} else if run, err = st.Get(ctx, ref); err != nil {
		return "", nil, err
	}
	if run.Schedule == nil {
		return "", nil, fmt.Errorf("run %s has no schedule", run.ID)
	}
	return fmt.Sprintf("Run %s (hyperperiod %d)", shortID(run.ID), run.Hyperperiod), run.Schedule, nil
}

// readScheduleFile reads a CSV or JSON schedule.
func readScheduleFile(path string) (*schedule.Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var s schedule.Schedule
		if err := json.NewDecoder(f).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &s, nil
	}
	return schedule.ReadCSV(f)
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
