package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/monocilindro/point-cloud-viewer/internal/ply"
	"github.com/monocilindro/point-cloud-viewer/internal/points"
	"github.com/monocilindro/point-cloud-viewer/internal/pts"
)

// defaultBatchSize bounds how many points a single in-flight batch holds.
const defaultBatchSize = 8192

// batchSource is the lazy batch sequence contract shared by the ply and pts
// readers.
type batchSource interface {
	Next() (*points.Batch, error)
	Close() error
}

// openSource picks a reader by file extension.
func openSource(path string, batchSize int) (batchSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".pts") {
		return pts.NewReader(path, batchSize)
	}
	return ply.NewReader(path, batchSize)
}

var convertCmd = &cobra.Command{
	Use:   "convert [src] [dst]",
	Short: "Re-encode a PLY or PTS point file as binary little-endian PLY",
	Long: `Convert decodes a .ply or .pts source and writes a binary
little-endian PLY file. The position encoding defaults to plain doubles;
quantized encodings (uint8, uint16, float32, float64) take a bounds
pre-pass over the source to find the scaling cube.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		encodingName, _ := cmd.Flags().GetString("encoding")

		logger := kitlog.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, level.AllowInfo())

		encoding, err := resolveEncoding(encodingName, src, batchSize)
		if err != nil {
			return err
		}

		writer, err := ply.NewWriter(dst, encoding, ply.Truncate)
		if err != nil {
			return err
		}

		start := time.Now()
		written, err := copyBatches(writer, src, batchSize)
		if err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		level.Info(logger).Log("msg", "converted", "src", src, "dst", dst,
			"points", written, "encoding", encodingName, "duration", time.Since(start))
		return nil
	},
}

// copyBatches streams every batch of src into w and returns the number of
// points written.
func copyBatches(w *ply.Writer, src string, batchSize int) (int64, error) {
	reader, err := openSource(src, batchSize)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var written int64
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		if err := w.Write(batch); err != nil {
			return written, err
		}
		written += int64(batch.Len())
	}
}

// resolveEncoding maps the --encoding flag to a position encoding. Scaled
// encodings need the source's bounding cube, which costs one decode pass.
func resolveEncoding(name, src string, batchSize int) (ply.Encoding, error) {
	var pos ply.PositionEncoding
	switch name {
	case "plain":
		return ply.Plain{}, nil
	case "uint8":
		pos = ply.PositionUint8
	case "uint16":
		pos = ply.PositionUint16
	case "float32":
		pos = ply.PositionFloat32
	case "float64":
		pos = ply.PositionFloat64
	default:
		return nil, fmt.Errorf("unknown encoding %q (want plain, uint8, uint16, float32 or float64)", name)
	}

	min, max, err := positionBounds(src, batchSize)
	if err != nil {
		return nil, err
	}
	return ply.ScaledToCube{Min: min, Max: max, Position: pos}, nil
}

func positionBounds(src string, batchSize int) (points.Vec3, points.Vec3, error) {
	reader, err := openSource(src, batchSize)
	if err != nil {
		return points.Vec3{}, points.Vec3{}, err
	}
	defer reader.Close()

	min := points.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := points.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	seen := false
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return points.Vec3{}, points.Vec3{}, err
		}
		for _, p := range batch.Position {
			seen = true
			min.X = math.Min(min.X, p.X)
			min.Y = math.Min(min.Y, p.Y)
			min.Z = math.Min(min.Z, p.Z)
			max.X = math.Max(max.X, p.X)
			max.Y = math.Max(max.Y, p.Y)
			max.Z = math.Max(max.Z, p.Z)
		}
	}
	if !seen {
		return points.Vec3{}, points.Vec3{}, fmt.Errorf("%s contains no points to scale against", src)
	}
	return min, max, nil
}

func init() {
	convertCmd.Flags().Int("batch-size", defaultBatchSize, "Points per in-flight batch")
	convertCmd.Flags().String("encoding", "plain", "Position encoding: plain, uint8, uint16, float32 or float64")
	RootCmd.AddCommand(convertCmd)
}
