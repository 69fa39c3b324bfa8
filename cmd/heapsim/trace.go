package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

type opKind int

const (
	opAlloc opKind = iota
	opFree
)

func (k opKind) String() string {
	switch k {
	case opAlloc:
		return "alloc"
	case opFree:
		return "free"
	default:
		return "unknown"
	}
}

// traceOp is a single line of a trace file
type traceOp struct {
	Kind opKind
	Name string
	Size int
	Line int
}

// parseTrace reads a trace made of "alloc <name> <size>" and "free <name>" lines. Blank lines and
// lines starting with # are skipped.
func parseTrace(r io.Reader) ([]traceOp, error) {
	var ops []traceOp

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "alloc":
			if len(fields) != 3 {
				return nil, errors.Newf("line %d: expected \"alloc <name> <size>\"", lineNumber)
			}

			size, err := strconv.Atoi(fields[2])
			if err != nil || size < 0 {
				return nil, errors.Newf("line %d: invalid size %q", lineNumber, fields[2])
			}

			ops = append(ops, traceOp{Kind: opAlloc, Name: fields[1], Size: size, Line: lineNumber})
		case "free":
			if len(fields) != 2 {
				return nil, errors.Newf("line %d: expected \"free <name>\"", lineNumber)
			}

			ops = append(ops, traceOp{Kind: opFree, Name: fields[1], Line: lineNumber})
		default:
			return nil, errors.Newf("line %d: unknown operation %q", lineNumber, fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read trace")
	}

	return ops, nil
}
