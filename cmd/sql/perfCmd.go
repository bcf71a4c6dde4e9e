package sql

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/quantadb/quanta-go/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for quanta clusters",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfTable      = "__perf_test"
	perfNumThreads = 10
	perfRowSpread  = 100
	perfValueSize  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	SQLCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. insert,select)"))
	key = "threads"
	SQLCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "rows"
	SQLCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different rows to use for the tests"))
	key = "value-size"
	SQLCommands.PersistentFlags().Int(key, 100, util.WrapString("Size of the payload column per row (in bytes)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfRowSpread = viper.GetInt("rows")
	perfValueSize = viper.GetInt("value-size")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult pairs throughput numbers with a latency distribution
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for quanta clusters")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Rows: %d\n", perfRowSpread)
	fmt.Println()

	// Prepare the working table
	data := dbClient.Data()
	if _, err := data.Execute(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id INT, payload TEXT)", perfTable)); err != nil {
		return fmt.Errorf("failed to create benchmark table: %w", err)
	}
	defer func() {
		if _, err := data.Execute(ctx, fmt.Sprintf("DROP TABLE %s", perfTable)); err != nil {
			log.Printf("error dropping benchmark table: %v\n", err)
		}
	}()

	payload := strings.Repeat("x", perfValueSize)

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)

	runTest := func(name string, op func(ctx context.Context, rowID int) error) {
		timer := gometrics.NewTimer()

		bench := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) {
				return
			}

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					err := op(ctx, counter%perfRowSpread)
					timer.UpdateSince(start)
					if err != nil {
						log.Printf("(%s) - error: %v\n", name, err)
					}
					counter++
				}
			})
		})

		results[name] = perfResult{bench: bench, timer: timer}
		printPerfResult(name, results[name])
	}

	runTest("insert", func(ctx context.Context, rowID int) error {
		_, err := data.ExecuteWithParams(ctx,
			fmt.Sprintf("INSERT INTO %s (id, payload) VALUES (?, ?)", perfTable),
			rowID, payload)
		return err
	})

	runTest("select", func(ctx context.Context, rowID int) error {
		_, err := data.QueryWithParams(ctx,
			fmt.Sprintf("SELECT id, payload FROM %s WHERE id = ?", perfTable), rowID)
		return err
	})

	runTest("select-miss", func(ctx context.Context, rowID int) error {
		_, err := data.QueryWithParams(ctx,
			fmt.Sprintf("SELECT id FROM %s WHERE id = ?", perfTable), -1-rowID)
		return err
	})

	runTest("update", func(ctx context.Context, rowID int) error {
		_, err := data.ExecuteWithParams(ctx,
			fmt.Sprintf("UPDATE %s SET payload = ? WHERE id = ?", perfTable),
			payload, rowID)
		return err
	})

	runTest("mixed", func(ctx context.Context, rowID int) error {
		var err error
		switch rowID % 3 {
		case 0: // insert
			_, err = data.ExecuteWithParams(ctx,
				fmt.Sprintf("INSERT INTO %s (id, payload) VALUES (?, ?)", perfTable),
				rowID, payload)
		case 1: // select
			_, err = data.QueryWithParams(ctx,
				fmt.Sprintf("SELECT id FROM %s WHERE id = ?", perfTable), rowID)
		case 2: // delete
			_, err = data.ExecuteWithParams(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE id = ?", perfTable), rowID)
		}
		return err
	})

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printPerfResult prints the result of a benchmark test in a formatted way
func printPerfResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	p := result.timer.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(p[0]), time.Duration(p[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	conf := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Skipped",
		"Hosts", "TimeoutMs", "MaxRetries", "MaxConnections",
		"Threads", "Rows", "ValueSizeBytes",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		p := result.timer.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(p[0]).String(),
			time.Duration(p[1]).String(),
			skipped,
			strings.Join(conf.Hosts, ";"),
			strconv.FormatUint(conf.TimeoutMs, 10),
			strconv.Itoa(conf.Retry.MaxRetries),
			strconv.Itoa(conf.Pool.MaxConnections),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfRowSpread),
			strconv.Itoa(perfValueSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
