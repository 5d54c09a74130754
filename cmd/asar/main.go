// Command asar packs, extracts, and inspects archive containers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/meigma/asar"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "pack":
		err = runPack(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "digest":
		err = runDigest(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  asar pack [-unpack path]... [-block-size n] <dir> <archive>
  asar extract [-path p]... <archive> <dir>
  asar list <archive>
  asar digest <archive>`)
	os.Exit(2)
}

// stringList collects repeated flag values.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	var unpack stringList
	fs.Var(&unpack, "unpack", "archive-relative path to store in the .unpacked sidecar (repeatable)")
	blockSize := fs.Int("block-size", 0, "integrity hashing block size in bytes (0 = default)")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}

	opts := []asar.PackOption{
		asar.PackWithUnpacked(unpack...),
		asar.PackWithBlockSize(*blockSize),
	}
	if *verbose {
		opts = append(opts, asar.PackWithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}

	fingerprint, err := asar.Pack(context.Background(), fs.Arg(0), fs.Arg(1), opts...)
	if err != nil {
		return err
	}
	fmt.Println(fingerprint)
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var paths stringList
	fs.Var(&paths, "path", "archive-relative path to extract (repeatable; default all)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}

	a, err := asar.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []asar.ExtractOption{
		asar.ExtractWithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}
	if len(paths) > 0 {
		opts = append(opts, asar.ExtractWithPaths(paths...))
	}
	return a.Extract(fs.Arg(1), opts...)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	long := fs.Bool("l", false, "show size, offset, and flags")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	a, err := asar.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	for path, e := range a.Entries() {
		if !*long {
			fmt.Println(path)
			continue
		}
		flags := ""
		if e.Executable {
			flags += "x"
		}
		if e.Unpacked {
			fmt.Printf("%12d %12s %2s %s\n", e.Size, "unpacked", flags, path)
		} else {
			fmt.Printf("%12d %12d %2s %s\n", e.Size, e.Offset, flags, path)
		}
	}
	return nil
}

func runDigest(args []string) error {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	a, err := asar.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println(a.HeaderDigest())
	return nil
}
