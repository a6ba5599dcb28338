package cmd

import (
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/monocilindro/point-cloud-viewer/internal/ply"
)

var appendCmd = &cobra.Command{
	Use:   "append [src] [dst]",
	Short: "Append the points of one file onto an existing PLY file",
	Long: `Append opens dst in resume mode: the finalized vertex count is read
back from its header, new records continue where the old ones ended, and the
count field is patched in place on close. If dst does not exist it is
created.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		logger := kitlog.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, level.AllowInfo())

		writer, err := ply.NewWriter(dst, ply.Plain{}, ply.Append)
		if err != nil {
			return err
		}
		resumed := writer.PointCount()

		start := time.Now()
		written, err := copyBatches(writer, src, batchSize)
		if err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		level.Info(logger).Log("msg", "appended", "src", src, "dst", dst,
			"resumed", resumed, "points", written, "duration", time.Since(start))
		return nil
	},
}

func init() {
	appendCmd.Flags().Int("batch-size", defaultBatchSize, "Points per in-flight batch")
	RootCmd.AddCommand(appendCmd)
}
