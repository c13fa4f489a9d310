package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deflatekit/pack/internal/compare"
)

var benchReferences bool

var benchCmd = &cobra.Command{
	Use:   "bench [files...]",
	Short: "Compare ratio and speed of every level with other compressors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codecs := compare.Levels(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
		codecs = append(codecs, compare.BlockMode(6))
		if benchReferences {
			codecs = append(codecs, compare.References()...)
		}

		for _, name := range args {
			data, err := os.ReadFile(name)
			if err != nil {
				return errors.Wrap(err, "reading input")
			}
			logrus.Debugf("benchmarking %s (%d bytes)", name, len(data))

			results, err := compare.Run(cmd.Context(), data, codecs)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "%s\t\t\t\t\t\t\n", name)
			fmt.Fprintf(tw, "codec\tout\tratio\tcompress\tdecompress\tok\t\n")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%d\t%.3f\t%s\t%s\t%v\t\n",
					r.Codec, r.Out, r.Ratio(), throughput(r.In, r.Compress), throughput(r.In, r.Decompress), r.Verified)
			}
			tw.Flush()

			if err != nil {
				return errors.Wrap(err, name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().BoolVarP(&benchReferences, "references", "r", true, "Include klauspost flate, zstd, brotli, snappy and lz4")
}

func throughput(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f MB/s", float64(n)/d.Seconds()/1e6)
}
