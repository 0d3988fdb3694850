// Package main provides cachedump, a small inspector for program binary
// store files written by the diskcache package.
//
// Usage:
//
//	cachedump [flags] FILE
//
// It prints one line per entry (stage-combination key, binary format tag,
// size). Unlike the manager's loader it never deletes a file it cannot
// read; it only reports the problem.
package main

import (
	"fmt"
	"os"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/gogpu/shadercache/diskcache"
)

func main() {
	os.Exit(run())
}

func run() int {
	keysOnly := flag.BoolP("keys", "k", false, "print entry keys only")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: cachedump [flags] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Inspect a shadercache program binary store file.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachedump: %v\n", err)
		return 1
	}
	defer func() { _ = f.Close() }()

	table, err := diskcache.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachedump: %s: %v\n", path, err)
		return 1
	}

	keys := make([]uint64, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	if *keysOnly {
		for _, key := range keys {
			fmt.Printf("%016X\n", key)
		}
		return 0
	}

	fmt.Printf("version %d, %d entries\n", diskcache.Version, len(table))
	var total int
	for _, key := range keys {
		entry := table[key]
		fmt.Printf("%016X  format 0x%04X  %7d bytes\n", key, entry.Format, len(entry.Data))
		total += len(entry.Data)
	}
	fmt.Printf("total %d bytes of program binaries\n", total)
	return 0
}
