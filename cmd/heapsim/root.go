package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/heap"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose   bool
	jsonOut   bool
	heapLimit int
	sliceHeap bool
)

var rootCmd = &cobra.Command{
	Use:   "heapsim",
	Short: "Replay allocation traces against a first-fit break heap",
	Long: `heapsim drives a first-fit heap with alloc/free traces and reports where
every block landed, which blocks were reused, and how large the heap grew.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every heap operation to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		IntVar(&heapLimit, "limit", 0, "Largest size in bytes the heap may grow to (0 uses the allocator default)")
	rootCmd.PersistentFlags().
		BoolVar(&sliceHeap, "slice", false, "Grow the heap inside a Go slice instead of a memory mapping")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}

func newAllocator(logger *slog.Logger) (*heap.Allocator, error) {
	var flags heap.CreateFlags
	if sliceHeap {
		flags |= heap.CreateSliceBacked
	}

	return heap.New(logger, heap.CreateOptions{
		Flags:         flags,
		HeapSizeLimit: heapLimit,
	})
}
