package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/linkedseq"
	"github.com/spf13/cobra"
)

type valueResult struct {
	Bucket uint64 `json:"bucket"`
	Value  uint64 `json:"value"`
}

type bucketResult struct {
	Bucket uint64 `json:"bucket"`
	Len    uint64 `json:"len"`
}

type valuesResult struct {
	Bucket uint64   `json:"bucket"`
	Len    uint64   `json:"len"`
	Values []uint64 `json:"values"`
}

func formatValues(vals []uint64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

func (c *cli) newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <bucket> <value>...",
		Short: "Append values to the end of a bucket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseUint("bucket", args[0])
			if err != nil {
				return err
			}
			vals, err := parseUints("value", args[1:])
			if err != nil {
				return err
			}
			return c.withDB(cmd, func(ctx context.Context, db *linkedseq.DB) error {
				for _, v := range vals {
					if err := db.Push(ctx, bucket, v); err != nil {
						return err
					}
				}
				return c.printValues(cmd, db, bucket)
			})
		},
	}
}

func (c *cli) newPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop <bucket>",
		Short: "Remove and print the last value of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseUint("bucket", args[0])
			if err != nil {
				return err
			}
			return c.withDB(cmd, func(ctx context.Context, db *linkedseq.DB) error {
				v, err := db.Pop(ctx, bucket)
				if err != nil {
					return err
				}
				return c.print(cmd, valueResult{Bucket: bucket, Value: v}, fmt.Sprint(v))
			})
		},
	}
}

func (c *cli) newPeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek <bucket>",
		Short: "Print the last value of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseUint("bucket", args[0])
			if err != nil {
				return err
			}
			return c.withDB(cmd, func(_ context.Context, db *linkedseq.DB) error {
				v, err := db.Peek(bucket)
				if err != nil {
					return err
				}
				return c.print(cmd, valueResult{Bucket: bucket, Value: v}, fmt.Sprint(v))
			})
		},
	}
}

func (c *cli) newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <bucket> <index> <value>",
		Short: "Insert a value so that it ends up at index",
		Long: `Insert a value so that it ends up at index. Values at index and later move
one position back. An index equal to the bucket length appends.

Example:
  lseqctl push 7 1 3
  lseqctl insert 7 1 2    # 1 2 3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseUints("argument", args)
			if err != nil {
				return err
			}
			bucket, index, v := nums[0], nums[1], nums[2]
			return c.withDB(cmd, func(ctx context.Context, db *linkedseq.DB) error {
				if err := db.InsertAt(ctx, bucket, index, v); err != nil {
					return err
				}
				return c.printValues(cmd, db, bucket)
			})
		},
	}
}

func (c *cli) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <bucket> <index>",
		Short: "Remove and print the value at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseUints("argument", args)
			if err != nil {
				return err
			}
			bucket, index := nums[0], nums[1]
			return c.withDB(cmd, func(ctx context.Context, db *linkedseq.DB) error {
				v, err := db.RemoveAt(ctx, bucket, index)
				if err != nil {
					return err
				}
				return c.print(cmd, valueResult{Bucket: bucket, Value: v}, fmt.Sprint(v))
			})
		},
	}
}

func (c *cli) newValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "values <bucket>",
		Short: "Print the values of a bucket from head to tail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseUint("bucket", args[0])
			if err != nil {
				return err
			}
			return c.withDB(cmd, func(_ context.Context, db *linkedseq.DB) error {
				return c.printValues(cmd, db, bucket)
			})
		},
	}
}

func (c *cli) printValues(cmd *cobra.Command, db *linkedseq.DB, bucket uint64) error {
	vals := db.Slice(bucket)
	res := valuesResult{Bucket: bucket, Len: uint64(len(vals)), Values: vals}
	return c.print(cmd, res, formatValues(vals))
}

func (c *cli) newBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List non-empty buckets and their lengths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDB(cmd, func(_ context.Context, db *linkedseq.DB) error {
				keys := db.Buckets()
				res := make([]bucketResult, 0, len(keys))
				var sb strings.Builder
				for i, k := range keys {
					n := db.Len(k)
					res = append(res, bucketResult{Bucket: k, Len: n})
					if i > 0 {
						sb.WriteByte('\n')
					}
					fmt.Fprintf(&sb, "%d\t%d", k, n)
				}
				return c.print(cmd, res, sb.String())
			})
		},
	}
}
