package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/linkedseq"
	"github.com/hupe1980/linkedseq/codec"
	"github.com/spf13/cobra"
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	dir      string
	store    string
	jsonOut  bool
	verbose  bool
	async    bool
	retain   int
	compress string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "lseqctl",
		Short: "Inspect and edit a linkedseq data directory",
		Long: `lseqctl opens a linkedseq database, runs one operation and closes it again.

The data directory holds the write-ahead log under wal/ and, unless --store
points elsewhere, checkpoints under blobs/.

Example:
  lseqctl --dir ./data push 7 1 2 3
  lseqctl --dir ./data insert 7 1 42
  lseqctl --dir ./data values 7 --json
  lseqctl --dir ./data --store s3://my-bucket/lists checkpoint`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.dir, "dir", "d", ".", "Data directory")
	flags.StringVar(&c.store, "store", "", "Checkpoint store URL (file://, sqlite://, s3://, minio://); default <dir>/blobs")
	flags.BoolVar(&c.jsonOut, "json", false, "Output in JSON format")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Log to stderr")
	flags.BoolVar(&c.async, "async", false, "Do not fsync the write-ahead log")
	flags.IntVar(&c.retain, "retain", linkedseq.DefaultRetain, "Checkpoints to keep")
	flags.StringVar(&c.compress, "compression", "lz4", "Snapshot compression (none, lz4, zstd)")

	root.AddCommand(
		c.newPushCmd(),
		c.newPopCmd(),
		c.newPeekCmd(),
		c.newInsertCmd(),
		c.newRemoveCmd(),
		c.newValuesCmd(),
		c.newBucketsCmd(),
		c.newStatsCmd(),
		c.newCheckpointCmd(),
		c.newVerifyCmd(),
	)
	return root
}

// withDB opens the database, runs fn and closes it. The close error is
// reported if fn succeeded.
func (c *cli) withDB(cmd *cobra.Command, fn func(ctx context.Context, db *linkedseq.DB) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	compression, err := codec.ParseCompression(c.compress)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, c.store, filepath.Join(c.dir, "blobs"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	durability := linkedseq.DurabilitySync
	if c.async {
		durability = linkedseq.DurabilityAsync
	}

	db, err := linkedseq.Open(ctx,
		linkedseq.WithWAL(filepath.Join(c.dir, "wal")),
		linkedseq.WithDurability(durability),
		linkedseq.WithBlobStore(store),
		linkedseq.WithCompression(compression),
		linkedseq.WithRetain(c.retain),
		linkedseq.WithLogger(c.logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(ctx, db)
}

func (c *cli) logger(w io.Writer) *linkedseq.Logger {
	if !c.verbose {
		return linkedseq.NoopLogger()
	}
	return linkedseq.NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// print writes v as indented JSON with --json, and text otherwise.
func (c *cli) print(cmd *cobra.Command, v any, text string) error {
	out := cmd.OutOrStdout()
	if !c.jsonOut {
		_, err := fmt.Fprintln(out, text)
		return err
	}
	data, err := codec.Sonnet{}.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an unsigned integer", name, s)
	}
	return v, nil
}

func parseUints(name string, args []string) ([]uint64, error) {
	out := make([]uint64, len(args))
	for i, s := range args {
		v, err := parseUint(name, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
