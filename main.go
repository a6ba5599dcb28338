package main

import (
	"os"

	"github.com/monocilindro/point-cloud-viewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
