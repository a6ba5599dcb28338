// Package scan discovers point files beneath a directory tree.
package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/monocilindro/point-cloud-viewer/internal/ply"
)

// Entry summarizes one discovered point file.
type Entry struct {
	// Path is the file's location.
	Path string
	// Format is "ply" or "pts".
	Format string
	// Size is the file size in bytes.
	Size int64
	// Points is the declared point count for ply files; -1 when the format
	// declares none or the header cannot be parsed.
	Points int64
}

// Walk traverses root and returns every .ply and .pts file found, in
// lexical order. Unreadable directories are skipped, not fatal.
func Walk(root string) ([]Entry, error) {
	var entries []Entry

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			format := ""
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ply":
				format = "ply"
			case ".pts":
				format = "pts"
			default:
				return nil
			}

			entry := Entry{Path: path, Format: format, Points: -1}
			if info, err := os.Stat(path); err == nil {
				entry.Size = info.Size()
			}
			if format == "ply" {
				entry.Points = declaredPoints(path)
			}
			entries = append(entries, entry)
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// declaredPoints parses the header and returns the vertex count, or -1 if
// the file is not a readable PLY.
func declaredPoints(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return -1
	}
	defer f.Close()

	header, _, err := ply.ParseHeader(bufio.NewReader(f))
	if err != nil {
		return -1
	}
	vertex := header.Element("vertex")
	if vertex == nil {
		return -1
	}
	return vertex.Count
}
