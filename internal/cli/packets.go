package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	nocio "github.com/matzehuels/nocsched/pkg/io"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// packetsCommand creates the packets command.
func (c *CLI) packetsCommand() *cobra.Command {
	var app string

	cmd := &cobra.Command{
		Use:   "packets",
		Short: "List the packets released during one hyperperiod",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := nocio.ImportApplication(app)
			if err != nil {
				return err
			}
			hp, packets, err := traffic.ExpandAll(a.Flows)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("expanded", "flows", len(a.Flows), "packets", len(packets))

			printKeyValue("Hyperperiod", strconv.Itoa(hp))
			printKeyValue("Flows", strconv.Itoa(len(a.Flows)))
			printKeyValue("Packets", strconv.Itoa(len(packets)))
			printNewline()
			fmt.Println(packetTable(packets))
			return nil
		},
	}

	cmd.Flags().StringVarP(&app, "app", "a", "", "application file (.gml, .yaml, .json)")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}

// packetTable renders packets as a bordered table.
func packetTable(packets []traffic.Packet) string {
	rows := make([][]string, len(packets))
	for i, p := range packets {
		rows[i] = []string{
			p.Name,
			flowLabel(p),
			strconv.Itoa(p.MinStart),
			strconv.Itoa(p.AbsDeadline),
			strconv.Itoa(p.DataSize),
		}
	}

	headers := []string{"Packet", "Tasks", "Min start", "Deadline", "Bytes"}
	return newTable(headers, rows, func(row, col int) lipgloss.Style {
		if col >= 2 {
			return StyleNumber.Align(lipgloss.Right)
		}
		return lipgloss.NewStyle()
	}).Render()
}
