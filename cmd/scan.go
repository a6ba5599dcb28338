package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monocilindro/point-cloud-viewer/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List point files beneath a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := scan.Walk(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No point files found")
			return nil
		}
		for _, e := range entries {
			if e.Points >= 0 {
				fmt.Printf("%s\t%s\t%d bytes\t%d points\n", e.Path, e.Format, e.Size, e.Points)
			} else {
				fmt.Printf("%s\t%s\t%d bytes\n", e.Path, e.Format, e.Size)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)
}
