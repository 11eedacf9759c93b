package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/linkedseq"
	"github.com/spf13/cobra"
)

type statsResult struct {
	Buckets         int    `json:"buckets"`
	Live            uint64 `json:"live"`
	Free            uint64 `json:"free"`
	Minted          uint64 `json:"minted"`
	Recycled        uint64 `json:"recycled"`
	LSN             uint64 `json:"lsn"`
	CheckpointLSN   uint64 `json:"checkpoint_lsn"`
	SinceCheckpoint uint64 `json:"since_checkpoint"`
	WALBytes        int64  `json:"wal_bytes"`
}

func (c *cli) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print arena, log and checkpoint counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDB(cmd, func(_ context.Context, db *linkedseq.DB) error {
				st := db.Stats()
				res := statsResult{
					Buckets:         st.Buckets,
					Live:            st.Live,
					Free:            st.Free,
					Minted:          st.Minted,
					Recycled:        st.Recycled,
					LSN:             st.LSN,
					CheckpointLSN:   st.CheckpointLSN,
					SinceCheckpoint: st.SinceCheckpoint,
					WALBytes:        st.WALBytes,
				}

				var sb strings.Builder
				fmt.Fprintf(&sb, "buckets:           %d\n", res.Buckets)
				fmt.Fprintf(&sb, "live nodes:        %d\n", res.Live)
				fmt.Fprintf(&sb, "free slots:        %d\n", res.Free)
				fmt.Fprintf(&sb, "minted slots:      %d\n", res.Minted)
				fmt.Fprintf(&sb, "recycled allocs:   %d\n", res.Recycled)
				fmt.Fprintf(&sb, "lsn:               %d\n", res.LSN)
				fmt.Fprintf(&sb, "checkpoint lsn:    %d\n", res.CheckpointLSN)
				fmt.Fprintf(&sb, "since checkpoint:  %d\n", res.SinceCheckpoint)
				fmt.Fprintf(&sb, "wal bytes:         %d", res.WALBytes)
				return c.print(cmd, res, sb.String())
			})
		},
	}
}

type checkpointResult struct {
	LSN      uint64 `json:"lsn"`
	ID       string `json:"id"`
	Snapshot string `json:"snapshot"`
	Digest   string `json:"digest"`
	Size     int64  `json:"size"`
}

func (c *cli) newCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Write a snapshot and truncate the write-ahead log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDB(cmd, func(ctx context.Context, db *linkedseq.DB) error {
				m, err := db.Checkpoint(ctx)
				if err != nil {
					return err
				}
				res := checkpointResult{
					LSN:      m.LSN,
					ID:       m.ID.String(),
					Snapshot: m.Snapshot,
					Digest:   m.Digest,
					Size:     m.Size,
				}
				return c.print(cmd, res, fmt.Sprintf("checkpoint %d: %s (%d bytes)", m.LSN, m.Snapshot, m.Size))
			})
		},
	}
}

type verifyResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (c *cli) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the structural invariants of every bucket",
		Long: `Recover the database and walk every chain and the free-list. Exits non-zero
if any invariant is broken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDB(cmd, func(_ context.Context, db *linkedseq.DB) error {
				verr := db.Verify()
				res := verifyResult{OK: verr == nil}
				text := "ok"
				if verr != nil {
					res.Error = verr.Error()
					text = "FAILED: " + verr.Error()
				}
				if err := c.print(cmd, res, text); err != nil {
					return err
				}
				return verr
			})
		},
	}
}
