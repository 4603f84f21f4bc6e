package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/regionfile/anvil"
	"github.com/arloliu/regionfile/linear"
	"github.com/arloliu/regionfile/region"
)

const (
	modeMca2Linear = "mca2linear"
	modeLinear2Mca = "linear2mca"
)

type rootParameters struct {
	Threads          int  `short:"t" long:"threads" description:"Number of worker threads (default: CPU count)"`
	CompressionLevel int  `short:"c" long:"compression-level" description:"Compression level for the destination format" default:"6"`
	Log              bool `short:"l" long:"log" description:"Log each converted file (disables the progress line)"`
	SkipExisting     bool `long:"skip-existing" description:"Skip files whose destination exists and is at least as new as the source"`
	Verify           bool `long:"verify" description:"Re-read each destination after writing and compare payloads"`

	Positional struct {
		Mode           string `positional-arg-name:"mode" description:"Conversion direction: mca2linear or linear2mca" required:"yes"`
		SourceDir      string `positional-arg-name:"source-dir" required:"yes"`
		DestinationDir string `positional-arg-name:"destination-dir" required:"yes"`
	} `positional-args:"yes"`
}

var rootArguments = new(rootParameters)

type conversionStats struct {
	converted   atomic.Uint64
	skipped     atomic.Uint64
	errors      atomic.Uint64
	inputBytes  atomic.Uint64
	outputBytes atomic.Uint64
}

func (s *conversionStats) addConverted(inputSize, outputSize uint64) {
	s.converted.Add(1)
	s.inputBytes.Add(inputSize)
	s.outputBytes.Add(outputSize)
}

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	mode := rootArguments.Positional.Mode
	if mode != modeMca2Linear && mode != modeLinear2Mca {
		fmt.Fprintf(os.Stderr, "invalid mode %q: expected %s or %s\n", mode, modeMca2Linear, modeLinear2Mca)
		os.Exit(1)
	}

	sourceInfo, err := os.Stat(rootArguments.Positional.SourceDir)
	log.PanicIf(err)

	if !sourceInfo.IsDir() {
		fmt.Fprintf(os.Stderr, "source path is not a directory: %s\n", rootArguments.Positional.SourceDir)
		os.Exit(1)
	}

	threads := rootArguments.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	sourceExt := ".mca"
	if mode == modeLinear2Mca {
		sourceExt = ".linear"
	}

	files, err := findRegionFiles(rootArguments.Positional.SourceDir, sourceExt)
	log.PanicIf(err)

	if len(files) == 0 {
		fmt.Printf("No %s files found in %s\n", sourceExt, rootArguments.Positional.SourceDir)
		return
	}

	fmt.Printf("Found %d region files to convert\n", len(files))

	err = os.MkdirAll(rootArguments.Positional.DestinationDir, 0o755)
	log.PanicIf(err)

	stats := &conversionStats{}
	counters := region.NewCounters()

	var processed atomic.Uint64
	start := time.Now()

	group := &errgroup.Group{}
	group.SetLimit(threads)

	for _, sourcePath := range files {
		group.Go(func() error {
			if err := convertFile(sourcePath, stats, counters); err != nil {
				stats.errors.Add(1)
				printErrorChain(sourcePath, err)
			}

			done := processed.Add(1)
			if !rootArguments.Log {
				fmt.Fprintf(os.Stderr, "\rConverted %d/%d files", done, len(files))
			}

			return nil
		})
	}

	_ = group.Wait()

	if !rootArguments.Log {
		fmt.Fprintln(os.Stderr)
	}

	printSummary(stats, time.Since(start))

	if stats.errors.Load() > 0 {
		os.Exit(1)
	}
}

func findRegionFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && filepath.Ext(entry.Name()) == ext {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// shouldConvert implements --skip-existing: skip when the destination exists
// and is at least as new as the source.
func shouldConvert(sourcePath, destPath string) (bool, error) {
	if !rootArguments.SkipExisting {
		return true, nil
	}

	destInfo, err := os.Stat(destPath)
	if err != nil {
		return true, nil
	}

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false, err
	}

	return sourceInfo.ModTime().After(destInfo.ModTime()), nil
}

func convertFile(sourcePath string, stats *conversionStats, counters *region.Counters) error {
	mode := rootArguments.Positional.Mode

	sourceName := filepath.Base(sourcePath)

	var destName string
	switch mode {
	case modeMca2Linear:
		destName = strings.TrimSuffix(sourceName, ".mca") + ".linear"
	case modeLinear2Mca:
		destName = strings.TrimSuffix(sourceName, ".linear") + ".mca"
	}

	destPath := filepath.Join(rootArguments.Positional.DestinationDir, destName)

	convert, err := shouldConvert(sourcePath, destPath)
	if err != nil {
		return err
	}
	if !convert {
		stats.skipped.Add(1)
		return nil
	}

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}
	if sourceInfo.Size() == 0 {
		stats.skipped.Add(1)
		return nil
	}

	start := time.Now()

	var src *region.Region
	switch mode {
	case modeMca2Linear:
		if src, err = anvil.ReadRegion(sourcePath, counters); err != nil {
			return err
		}
		err = linear.WriteRegion(destPath, src, rootArguments.CompressionLevel, counters)
	case modeLinear2Mca:
		if src, err = linear.ReadRegion(sourcePath, counters); err != nil {
			return err
		}
		err = anvil.WriteRegion(destPath, src, rootArguments.CompressionLevel, counters)
	}
	if err != nil {
		return err
	}

	if rootArguments.Verify {
		if err := verifyDestination(mode, destPath, src, counters); err != nil {
			return err
		}
	}

	destInfo, err := os.Stat(destPath)
	if err != nil {
		return err
	}

	stats.addConverted(uint64(sourceInfo.Size()), uint64(destInfo.Size()))

	if rootArguments.Log {
		ratio := float64(destInfo.Size()) / float64(sourceInfo.Size()) * 100.0
		fmt.Printf("%s -> %s (compression: %.1f%%, time: %s)\n",
			sourcePath, destPath, ratio, time.Since(start).Round(time.Millisecond))
	}

	return nil
}

// verifyDestination re-reads the destination and compares its payload digest
// against the region that was just written.
func verifyDestination(mode, destPath string, src *region.Region, counters *region.Counters) error {
	var dest *region.Region

	switch mode {
	case modeMca2Linear:
		if !linear.VerifyFile(destPath) {
			return fmt.Errorf("verify %s: malformed stream envelope", destPath)
		}

		r, err := linear.ReadRegion(destPath, nil)
		if err != nil {
			return fmt.Errorf("verify %s: %w", destPath, err)
		}
		dest = r
	case modeLinear2Mca:
		r, err := anvil.ReadRegion(destPath, nil)
		if err != nil {
			return fmt.Errorf("verify %s: %w", destPath, err)
		}
		dest = r
	}

	if dest.ChunkCount() != src.ChunkCount() || dest.PayloadDigest() != src.PayloadDigest() {
		return fmt.Errorf("verify %s: destination payloads differ from source", destPath)
	}

	return nil
}

func printErrorChain(path string, err error) {
	fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", path, err)

	depth := 1
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(os.Stderr, "  Caused by (%d): %v\n", depth, cause)
		depth++
	}

	if info, statErr := os.Stat(path); statErr == nil {
		fmt.Fprintf(os.Stderr, "  File size: %d bytes\n", info.Size())
	}
}

func printSummary(stats *conversionStats, elapsed time.Duration) {
	converted := stats.converted.Load()
	inputBytes := stats.inputBytes.Load()
	outputBytes := stats.outputBytes.Load()

	fmt.Println("\n=== Conversion Summary ===")
	fmt.Printf("Files converted: %d\n", converted)
	fmt.Printf("Files skipped: %d\n", stats.skipped.Load())
	fmt.Printf("Errors: %d\n", stats.errors.Load())
	fmt.Printf("Total time: %s\n", elapsed.Round(time.Millisecond))

	if converted == 0 {
		return
	}

	fmt.Printf("Input size: %s\n", humanize.IBytes(inputBytes))
	fmt.Printf("Output size: %s\n", humanize.IBytes(outputBytes))
	if inputBytes > 0 {
		fmt.Printf("Compression ratio: %.1f%%\n", float64(outputBytes)/float64(inputBytes)*100.0)
	}

	seconds := elapsed.Seconds()
	if seconds > 0 {
		fmt.Printf("Average speed: %.1f files/sec\n", float64(converted)/seconds)
		fmt.Printf("Throughput: %s/s\n", humanize.IBytes(uint64(float64(inputBytes)/seconds)))
	}
}
