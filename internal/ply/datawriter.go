package ply

import (
	"bufio"
	"os"
)

// dataWriter is a buffered file writer that stays seekable: Seek flushes the
// buffer before moving the cursor, so a seek-back-and-patch never reorders
// buffered bytes.
type dataWriter struct {
	f *os.File
	w *bufio.Writer
}

func newDataWriter(f *os.File) *dataWriter {
	return &dataWriter{f: f, w: bufio.NewWriter(f)}
}

func (d *dataWriter) Write(p []byte) (int, error) { return d.w.Write(p) }

func (d *dataWriter) WriteString(s string) (int, error) { return d.w.WriteString(s) }

func (d *dataWriter) Seek(offset int64, whence int) (int64, error) {
	if err := d.w.Flush(); err != nil {
		return 0, err
	}
	return d.f.Seek(offset, whence)
}

func (d *dataWriter) Close() error {
	if err := d.w.Flush(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
