package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/stashkv/stash"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measures set/get/increment round-trip cost against a scratch database",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().Int("keys", 100, "how many distinct keys the benchmark spreads writes over")
	benchCmd.Flags().Int("value-size", 256, "payload size in bytes")
}

func runBench(cmd *cobra.Command, _ []string) error {
	keys, _ := cmd.Flags().GetInt("keys")
	valueSize, _ := cmd.Flags().GetInt("value-size")

	dir, err := os.MkdirTemp("", "stash-bench-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	s, err := stash.Open(dir, stash.WithTable("bench"))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	payload := strings.Repeat("x", valueSize)
	key := func(i int) string { return fmt.Sprintf("bench:%d", i%keys) }

	fmt.Printf("stash bench: %d keys, %d byte values, scratch db in %s\n\n", keys, valueSize, dir)

	printResult("set", testing.Benchmark(func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := s.Set(ctx, key(i), payload, stash.Forever); err != nil {
				b.Fatal(err)
			}
		}
	}))

	printResult("get", testing.Benchmark(func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := s.Get(ctx, key(i), nil); err != nil {
				b.Fatal(err)
			}
		}
	}))

	printResult("increment", testing.Benchmark(func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := s.Increment(ctx, "bench:counter", 1); err != nil {
				b.Fatal(err)
			}
		}
	}))

	return nil
}

func printResult(name string, r testing.BenchmarkResult) {
	opsPerSec := float64(0)
	if r.T > 0 {
		opsPerSec = float64(r.N) / r.T.Seconds()
	}
	fmt.Printf("%-10s %10d ops %14s/op %12.0f ops/s\n",
		name, r.N, time.Duration(r.NsPerOp()), opsPerSec)
}
