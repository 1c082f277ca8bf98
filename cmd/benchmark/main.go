package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeflat/config"
	"codeflat/internal/adapter/analyzer"
	"codeflat/internal/adapter/fs"
	"codeflat/internal/adapter/memstore"
	"codeflat/internal/domain"
	"codeflat/internal/usecase"
)

func main() {
	root := flag.String("root", ".", "Directory to flatten")
	n := flag.Int("n", 5, "Number of runs")
	ignore := flag.String("ignore", "", "Comma-separated directories to skip (default from config)")
	flag.Parse()

	if *n < 1 {
		fmt.Println("Usage: go run cmd/benchmark/main.go -root ./project -n 5")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. Flatten throughput (files, bytes and tokens per second)")
		fmt.Println("  2. Determinism (every run must produce identical bytes)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ignoreList := cfg.Flatten.Ignore
	if *ignore != "" {
		ignoreList = strings.Split(*ignore, ",")
	}

	workDir, err := os.MkdirTemp("", "codeflat-bench-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workDir)

	// Each run is recorded so artifact digests can be compared afterwards.
	runs := memstore.NewMemoryStore()
	flattenUC := usecase.NewFlattenUseCase(fs.NewTextReader(cfg.Flatten.MaxFileBytes), analyzer.NewTokenizer(), runs)

	fmt.Println("FLATTEN BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Root:   %s\n", *root)
	fmt.Printf("Ignore: %s\n", strings.Join(ignoreList, ", "))
	fmt.Printf("Runs:   %d\n", *n)
	fmt.Println(strings.Repeat("-", 70))

	var last *domain.FlattenResult
	var total time.Duration

	for i := 0; i < *n; i++ {
		output := filepath.Join(workDir, fmt.Sprintf("run-%d.txt", i))

		start := time.Now()
		result, err := flattenUC.Flatten(usecase.FlattenRequest{
			Root:         *root,
			Output:       output,
			Ignore:       ignoreList,
			Exclude:      cfg.Flatten.Exclude,
			UseGitignore: cfg.Flatten.UseGitignore,
		})
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Flatten error: %v\n", err)
			os.Exit(1)
		}
		total += elapsed
		last = result

		fmt.Printf("%d. %8.1fms  %d files  %d bytes\n", i+1, float64(elapsed.Microseconds())/1000, result.FilesWritten, result.BytesWritten)
	}

	recorded, err := runs.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Manifest error: %v\n", err)
		os.Exit(1)
	}
	identical := true
	for _, r := range recorded[1:] {
		if r.ArtifactSHA != recorded[0].ArtifactSHA {
			identical = false
		}
	}

	avg := total / time.Duration(*n)
	seconds := avg.Seconds()
	if seconds == 0 {
		seconds = 1e-9
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("THROUGHPUT:\n")
	fmt.Printf("  Average run:  %s\n", avg.Round(time.Microsecond))
	fmt.Printf("  Files/sec:    %.0f\n", float64(last.FilesWritten)/seconds)
	fmt.Printf("  MiB/sec:      %.2f\n", float64(last.BytesWritten)/(1024*1024)/seconds)
	fmt.Printf("  Tokens (est): %d\n", last.EstimatedTokens)
	fmt.Printf("  Failed files: %d\n", len(last.Failed))

	if identical {
		fmt.Println("  Status: GOOD - all runs produced identical output")
	} else {
		fmt.Println("  Status: POOR - output differed between runs (tree changed while running?)")
		os.Exit(1)
	}
}
