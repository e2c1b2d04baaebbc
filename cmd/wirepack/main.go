// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wirepack/wirepack/lib/blobstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		printUsage()
		return 2
	}

	command := os.Args[1]
	arguments := os.Args[2:]

	var err error
	switch command {
	case "ls":
		err = commandList(arguments)
	case "stat":
		err = commandStat(arguments)
	case "get":
		err = commandGet(arguments)
	case "put":
		err = commandPut(arguments)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		printUsage()
		return 2
	}

	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: wirepack <command> [flags]

commands:
  ls            list stored keys
  stat <key>    print entry metadata
  get <key>     write payload bytes to stdout (or --output)
  put <file>    store a payload from a file, print its key

store selection (all commands):
  --config PATH     store config file (.jsonc or .yaml)
  --container PATH  container file (overrides config)
  --lock-file PATH  lock file (default: container + ".lock")
`)
}

// storeFlags holds the store-selection flags shared by every command.
type storeFlags struct {
	config    string
	container string
	lockFile  string
}

func (f *storeFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.config, "config", "", "store config file (.jsonc or .yaml)")
	flagSet.StringVar(&f.container, "container", "", "container file path")
	flagSet.StringVar(&f.lockFile, "lock-file", "", "lock file path")
}

func (f *storeFlags) open() (*blobstore.Store, error) {
	if f.container != "" {
		var opts []blobstore.Option
		if f.lockFile != "" {
			opts = append(opts, blobstore.WithLockFile(f.lockFile))
		}
		return blobstore.Open(f.container, opts...)
	}
	if f.config != "" {
		config, err := blobstore.LoadConfig(f.config)
		if err != nil {
			return nil, err
		}
		if f.lockFile != "" {
			config.LockFile = f.lockFile
		}
		return config.Open()
	}
	return nil, fmt.Errorf("either --container or --config is required")
}

func commandList(arguments []string) error {
	flagSet := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	var flags storeFlags
	flags.addFlags(flagSet)
	if err := flagSet.Parse(arguments); err != nil {
		return err
	}

	store, err := flags.open()
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		info, err := store.Stat(key)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-8s %-10s %v\n", key, info.DType, info.Compression, info.Shape)
	}
	return nil
}

func commandStat(arguments []string) error {
	flagSet := pflag.NewFlagSet("stat", pflag.ContinueOnError)
	var flags storeFlags
	flags.addFlags(flagSet)
	if err := flagSet.Parse(arguments); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("stat takes exactly one key")
	}

	key, err := blobstore.ParseKey(flagSet.Arg(0))
	if err != nil {
		return err
	}

	store, err := flags.open()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.Stat(key)
	if err != nil {
		return err
	}
	fmt.Printf("key:         %s\n", info.Key)
	fmt.Printf("dtype:       %s\n", info.DType)
	fmt.Printf("shape:       %v\n", info.Shape)
	fmt.Printf("compression: %s\n", info.Compression)
	fmt.Printf("size:        %d\n", info.Size)
	fmt.Printf("stored:      %d\n", info.StoredSize)
	return nil
}

func commandGet(arguments []string) error {
	flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
	var flags storeFlags
	var output string
	flags.addFlags(flagSet)
	flagSet.StringVarP(&output, "output", "o", "", "write payload to this file instead of stdout")
	if err := flagSet.Parse(arguments); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("get takes exactly one key")
	}

	key, err := blobstore.ParseKey(flagSet.Arg(0))
	if err != nil {
		return err
	}

	store, err := flags.open()
	if err != nil {
		return err
	}
	defer store.Close()

	payload, err := store.Get(key)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(payload.Data)
		return err
	}
	return os.WriteFile(output, payload.Data, 0o644)
}

func commandPut(arguments []string) error {
	flagSet := pflag.NewFlagSet("put", pflag.ContinueOnError)
	var flags storeFlags
	var dtype, shape, compression string
	flags.addFlags(flagSet)
	flagSet.StringVar(&dtype, "dtype", "", "element type tag (required)")
	flagSet.StringVar(&shape, "shape", "", "comma-separated dimensions, e.g. 10 or 10,3")
	flagSet.StringVar(&compression, "compression", "", "compression tag override (none, lz4, zstd, bg4_lz4)")
	if err := flagSet.Parse(arguments); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("put takes exactly one file")
	}
	if dtype == "" {
		return fmt.Errorf("--dtype is required")
	}

	dimensions, err := parseShape(shape)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return fmt.Errorf("reading payload file: %w", err)
	}

	store, err := flags.open()
	if err != nil {
		return err
	}
	defer store.Close()

	if compression != "" {
		// The per-store default is set at Open time; a one-off
		// override means reopening with the explicit tag.
		tag, err := blobstore.ParseCompressionTag(compression)
		if err != nil {
			return err
		}
		path := store.ContainerPath()
		lockPath := store.LockPath()
		store.Close()
		store, err = blobstore.Open(path,
			blobstore.WithLockFile(lockPath),
			blobstore.WithCompression(tag))
		if err != nil {
			return err
		}
		defer store.Close()
	}

	key, err := store.Put(blobstore.Payload{DType: dtype, Shape: dimensions, Data: data})
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

// parseShape parses a comma-separated dimension list. Empty means a
// rank-0 (scalar) payload.
func parseShape(shape string) ([]int, error) {
	if shape == "" {
		return nil, nil
	}
	parts := strings.Split(shape, ",")
	dimensions := make([]int, len(parts))
	for i, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parsing shape %q: %w", shape, err)
		}
		dimensions[i] = dim
	}
	return dimensions, nil
}
