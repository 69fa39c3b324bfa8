package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <trace>",
		Short: "Replay a trace file against a fresh heap",
		Long: `The run command creates a fresh heap and replays every operation in a trace
file against it. Each line of the trace is one of:

  alloc <name> <size>   allocate size bytes and remember the pointer as name
  free <name>           release the pointer remembered as name

Blank lines and lines starting with # are ignored. Use - to read the trace from stdin.

Example:
  heapsim run workload.trace
  heapsim run workload.trace --limit 4096 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "failed to open trace")
				}
				defer file.Close()
				in = file
			}

			ops, err := parseTrace(in)
			if err != nil {
				return err
			}

			allocator, err := newAllocator(newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			err = runTrace(cmd.OutOrStdout(), allocator, ops)
			closeErr := allocator.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", closeErr)
			}
			return nil
		},
	}
}

func runTrace(out io.Writer, allocator *heap.Allocator, ops []traceOp) error {
	live := make(map[string]heap.Pointer)

	for _, op := range ops {
		switch op.Kind {
		case opAlloc:
			if p, exists := live[op.Name]; exists {
				return errors.Newf("line %d: %q is still allocated at %s", op.Line, op.Name, p)
			}

			blocksBefore := allocator.BlockCount()
			p, err := allocator.Allocate(op.Size)
			if err != nil {
				return errors.Wrapf(err, "line %d: alloc %s %d", op.Line, op.Name, op.Size)
			}
			live[op.Name] = p

			block, err := allocator.Header(p)
			if err != nil {
				return err
			}

			outcome := "grew"
			if allocator.BlockCount() == blocksBefore {
				outcome = "reused"
			}

			if !jsonOut {
				fmt.Fprintf(out, "alloc %-8s %6d -> %s size=%d %s blocks=%d top=%d\n",
					op.Name, op.Size, p, block.Size, outcome, allocator.BlockCount(), allocator.Top())
			}
		case opFree:
			p, exists := live[op.Name]
			if !exists {
				return errors.Newf("line %d: %q is not allocated", op.Line, op.Name)
			}

			err := allocator.Release(p)
			if err != nil {
				return errors.Wrapf(err, "line %d: free %s", op.Line, op.Name)
			}
			delete(live, op.Name)

			if !jsonOut {
				fmt.Fprintf(out, "free  %-8s        -> %s blocks=%d top=%d\n",
					op.Name, p, allocator.BlockCount(), allocator.Top())
			}
		}
	}

	if jsonOut {
		_, err := fmt.Fprintln(out, allocator.BuildStatsString(true))
		return err
	}

	var stats memutils.DetailedStatistics
	allocator.CalculateDetailedStatistics(&stats)

	fmt.Fprintf(out, "\nblocks: %d used, %d free, %d total\n",
		stats.AllocationCount, stats.FreeBlockCount, stats.BlockCount)
	fmt.Fprintf(out, "bytes: %d used, %d free, %d heap\n",
		stats.AllocationBytes, stats.FreeBytes, stats.BlockBytes)
	return nil
}
