package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

func init() {
	rootCmd.AddCommand(newAlignCmd())
}

func newAlignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "align <size>...",
		Short: "Show the aligned payload size and heap footprint of request sizes",
		Long: `The align command shows how many payload bytes the heap reserves for each
requested size, and how far the heap grows when a block of that size is created.

Example:
  heapsim align 3 10 100
  heapsim align 3 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes, err := parseSizes(args)
			if err != nil {
				return err
			}
			return runAlign(cmd.OutOrStdout(), sizes)
		},
	}
}

func parseSizes(args []string) ([]int, error) {
	sizes := make([]int, 0, len(args))
	for _, arg := range args {
		size, err := strconv.Atoi(arg)
		if err != nil || size < 0 || size > heap.MaxAllocationSize {
			return nil, errors.Newf("invalid size %q: sizes must be integers from 0 to %d", arg, heap.MaxAllocationSize)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func runAlign(out io.Writer, sizes []int) error {
	if jsonOut {
		writer := jwriter.NewWriter()
		arr := writer.Array()
		for _, size := range sizes {
			obj := arr.Object()
			obj.Name("Requested").Int(size)
			obj.Name("Aligned").Int(heap.AlignSize(size))
			obj.Name("Footprint").Int(metadata.FootprintSize(heap.AlignSize(size)))
			obj.End()
		}
		arr.End()

		if err := writer.Error(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, string(writer.Bytes()))
		return err
	}

	for _, size := range sizes {
		aligned := heap.AlignSize(size)
		_, err := fmt.Fprintf(out, "%d -> %d (footprint %d)\n", size, aligned, metadata.FootprintSize(aligned))
		if err != nil {
			return err
		}
	}
	return nil
}
