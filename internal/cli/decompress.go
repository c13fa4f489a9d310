package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deflatekit/pack/gzip"
)

var (
	decompressDict        string
	decompressConcurrency int
	decompressForce       bool
	decompressProgress    bool
)

var decompressCmd = &cobra.Command{
	Use:     "decompress [files...]",
	Aliases: []string{"d"},
	Short:   "Decompress raw DEFLATE, zlib or gzip files, or stdin to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		o := &options{
			force:       decompressForce,
			progress:    cfg.Runtime.Progress,
			concurrency: cfg.Runtime.Concurrency,
		}
		dictFile := cfg.Compress.Dictionary
		if cmd.Flags().Changed("dict") {
			dictFile = decompressDict
		}
		if cmd.Flags().Changed("concurrency") {
			o.concurrency = decompressConcurrency
		}
		if cmd.Flags().Changed("progress") {
			o.progress = decompressProgress
		}
		if dictFile != "" {
			dict, err := os.ReadFile(dictFile)
			if err != nil {
				return errors.Wrap(err, "reading dictionary")
			}
			o.dict = dict
		}

		if len(args) == 0 {
			r, _, err := newDecompressor(cmd.InOrStdin(), o.dict)
			if err != nil {
				return err
			}
			_, err = io.Copy(cmd.OutOrStdout(), r)
			return errors.Wrap(err, "decompressing stdin")
		}

		return runFiles(cmd.Context(), args, o, "decompressing", decompressFile)
	},
}

func init() {
	rootCmd.AddCommand(decompressCmd)
	f := decompressCmd.Flags()
	f.StringVar(&decompressDict, "dict", "", "Preset dictionary file")
	f.IntVarP(&decompressConcurrency, "concurrency", "j", 4, "Maximum number of files processed at once")
	f.BoolVarP(&decompressForce, "force", "f", false, "Overwrite existing output files")
	f.BoolVar(&decompressProgress, "progress", false, "Show a progress bar")
}

func decompressFile(ctx context.Context, name string, o *options, bar *pb.ProgressBar) (fileStats, error) {
	var st fileStats
	in, err := os.Open(name)
	if err != nil {
		return st, errors.Wrap(err, "opening input")
	}
	defer in.Close()

	var src io.Reader = in
	if bar != nil {
		src = bar.NewProxyReader(in)
	}
	counter := &countingReader{r: src}
	r, container, err := newDecompressor(counter, o.dict)
	if err != nil {
		return st, err
	}

	outName := decompressedName(name)
	out, err := createOutput(outName, o.force)
	if err != nil {
		return st, err
	}
	defer out.Close()

	st.out, err = io.Copy(out, r)
	if err != nil {
		out.Close()
		os.Remove(outName)
		return st, errors.Wrap(err, "decompressing")
	}
	if err := out.Close(); err != nil {
		return st, errors.Wrap(err, "closing output")
	}
	st.in = counter.n

	fields := logrus.Fields{
		"file":      name,
		"container": container.String(),
		"in":        st.in,
		"out":       st.out,
		"ratio":     fmt.Sprintf("%.3f", ratio(st.out, st.in)),
	}
	if g, ok := r.(*gzip.Reader); ok {
		if h, ok := g.Header(); ok && h.Name != "" {
			fields["name"] = h.Name
		}
	}
	logrus.WithFields(fields).Info("decompressed")
	return st, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
