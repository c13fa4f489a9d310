package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/pierrec/xxHash/xxHash32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deflatekit/pack/internal/concurrency"
	"github.com/deflatekit/pack/internal/config"
)

var (
	compressLevel       int
	compressContainer   string
	compressStrategy    string
	compressDict        string
	compressBlockMode   bool
	compressConcurrency int
	compressVerify      bool
	compressForce       bool
	compressProgress    bool
)

var compressCmd = &cobra.Command{
	Use:   "compress [files...]",
	Short: "Compress files, or stdin to stdout when no files are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := compressOptions(cmd)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			w, err := newCompressor(cmd.OutOrStdout(), o, member{})
			if err != nil {
				return err
			}
			if _, err := io.Copy(w, cmd.InOrStdin()); err != nil {
				return errors.Wrap(err, "compressing stdin")
			}
			return w.Close()
		}

		return runFiles(cmd.Context(), args, o, "compressing", compressFile)
	},
}

func init() {
	rootCmd.AddCommand(compressCmd)
	f := compressCmd.Flags()
	f.IntVarP(&compressLevel, "level", "l", -1, "Compression level, 0 (store) to 9 (best), -1 for the default")
	f.StringVarP(&compressContainer, "container", "c", "gzip", "Output container: raw, zlib or gzip")
	f.StringVarP(&compressStrategy, "strategy", "s", "default", "Match strategy: default, filtered or huffman")
	f.StringVar(&compressDict, "dict", "", "Preset dictionary file (raw and zlib only)")
	f.BoolVar(&compressBlockMode, "block-mode", false, "Compress through the modular match finder and block encoder")
	f.IntVarP(&compressConcurrency, "concurrency", "j", 4, "Maximum number of files processed at once")
	f.BoolVar(&compressVerify, "verify", false, "Decompress each output and compare its xxHash32 with the input")
	f.BoolVarP(&compressForce, "force", "f", false, "Overwrite existing output files")
	f.BoolVar(&compressProgress, "progress", false, "Show a progress bar")
}

// compressOptions starts from the loaded config and applies the flags the
// user set explicitly.
func compressOptions(cmd *cobra.Command) (*options, error) {
	flags := cmd.Flags()
	c := *cfg.Compress
	level := *c.Level
	c.Level = &level
	r := *cfg.Runtime

	if flags.Changed("level") {
		level = compressLevel
	}
	if flags.Changed("container") {
		c.Container = compressContainer
	}
	if flags.Changed("strategy") {
		c.Strategy = compressStrategy
	}
	if flags.Changed("dict") {
		c.Dictionary = compressDict
	}
	if flags.Changed("block-mode") {
		c.BlockMode = compressBlockMode
	}
	if flags.Changed("concurrency") {
		r.Concurrency = compressConcurrency
	}
	if flags.Changed("progress") {
		r.Progress = compressProgress
	}

	merged := *cfg
	merged.Compress, merged.Runtime = &c, &r
	if err := config.Validate(&merged); err != nil {
		return nil, err
	}

	o := &options{
		level:       merged.Level(),
		strategy:    merged.Strategy(),
		container:   merged.Container(),
		blockMode:   c.BlockMode,
		verify:      compressVerify,
		force:       compressForce,
		progress:    r.Progress,
		concurrency: r.Concurrency,
	}
	if c.Dictionary != "" {
		dict, err := os.ReadFile(c.Dictionary)
		if err != nil {
			return nil, errors.Wrap(err, "reading dictionary")
		}
		o.dict = dict
	}
	return o, nil
}

type fileStats struct {
	in, out int64
}

type fileFunc func(ctx context.Context, name string, o *options, bar *pb.ProgressBar) (fileStats, error)

// runFiles applies fn to every file on o.concurrency workers, with an
// optional progress bar over the total input size.
func runFiles(ctx context.Context, names []string, o *options, verb string, fn fileFunc) error {
	var total int64
	var jobs []*concurrency.Job[string, fileStats]
	for _, name := range names {
		if info, err := os.Stat(name); err == nil {
			total += info.Size()
		}
		jobs = append(jobs, &concurrency.Job[string, fileStats]{Name: name, Input: name})
	}

	var bar *pb.ProgressBar
	if o.progress {
		bar = pb.New64(total)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(os.Stderr)
		bar.Start()
		defer bar.Finish()
	}

	logrus.Debugf("%s %d file(s) with %d worker(s)", verb, len(jobs), o.concurrency)
	return concurrency.Execute(ctx, func(ctx context.Context, j *concurrency.Job[string, fileStats]) (fileStats, error) {
		return fn(ctx, j.Input, o, bar)
	}, jobs, o.concurrency)
}

func compressFile(ctx context.Context, name string, o *options, bar *pb.ProgressBar) (fileStats, error) {
	var st fileStats
	in, err := os.Open(name)
	if err != nil {
		return st, errors.Wrap(err, "opening input")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return st, errors.Wrap(err, "reading input")
	}
	if info.IsDir() {
		return st, errors.New("is a directory")
	}

	outName := name + o.container.Ext()
	out, err := createOutput(outName, o.force)
	if err != nil {
		return st, err
	}
	defer out.Close()

	counter := &countingWriter{w: out}
	w, err := newCompressor(counter, o, member{name: filepath.Base(name), modTime: info.ModTime()})
	if err != nil {
		return st, err
	}

	var src io.Reader = in
	if bar != nil {
		src = bar.NewProxyReader(in)
	}
	digest := xxHash32.New(0)
	st.in, err = io.Copy(w, io.TeeReader(src, digest))
	if err != nil {
		return st, errors.Wrap(err, "compressing")
	}
	if err := w.Close(); err != nil {
		return st, errors.Wrap(err, "finishing")
	}
	if err := out.Close(); err != nil {
		return st, errors.Wrap(err, "closing output")
	}
	st.out = counter.n

	if o.verify {
		if err := verify(outName, o.dict, digest.Sum32()); err != nil {
			return st, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"file":  name,
		"in":    st.in,
		"out":   st.out,
		"ratio": fmt.Sprintf("%.3f", ratio(st.in, st.out)),
	}).Info("compressed")
	return st, nil
}

func verify(name string, dict []byte, want uint32) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	defer f.Close()

	r, _, err := newDecompressor(f, dict)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	digest := xxHash32.New(0)
	if _, err := io.Copy(digest, r); err != nil {
		return errors.Wrap(err, "verify")
	}
	if got := digest.Sum32(); got != want {
		return errors.Errorf("verify: xxHash32 %08x of round trip, want %08x", got, want)
	}
	logrus.WithField("file", name).Debug("verified")
	return nil
}
