package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monocilindro/point-cloud-viewer/internal/ply"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Print the header summary of a PLY point file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		header, headerLen, err := ply.ParseHeader(bufio.NewReader(f))
		if err != nil {
			return err
		}

		fmt.Printf("file: %s\n", path)
		fmt.Printf("size: %d bytes (header %d bytes)\n", info.Size(), headerLen)
		fmt.Printf("format: %s 1.0\n", header.Format)
		if header.Offset.X != 0 || header.Offset.Y != 0 || header.Offset.Z != 0 {
			fmt.Printf("offset: %v %v %v\n", header.Offset.X, header.Offset.Y, header.Offset.Z)
		}
		for _, el := range header.Elements {
			fmt.Printf("element %s: %d\n", el.Name, el.Count)
			recordSize := 0
			for _, p := range el.Properties {
				fmt.Printf("  property %s %s\n", p.Type.Token(), p.Name)
				recordSize += p.Type.Width()
			}
			if len(el.Properties) > 0 {
				fmt.Printf("  record size: %d bytes\n", recordSize)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)
}
