package main

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fusenorm/internal/kernel"
	"github.com/samcharles93/fusenorm/internal/logger"
	"github.com/samcharles93/fusenorm/internal/stream"
)

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		width      int64
		layers     int64
		seed       int64
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Run standardized kernel throughput benchmarks",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "warmup",
				Usage:       "number of warmup runs",
				Value:       1,
				Destination: &warmupRuns,
			},
			&cli.Int64Flag{
				Name:        "runs",
				Usage:       "number of benchmark runs",
				Value:       5,
				Destination: &benchRuns,
			},
			&cli.Int64Flag{
				Name:        "width",
				Usage:       "hidden dimension",
				Value:       4096,
				Destination: &width,
			},
			&cli.Int64Flag{
				Name:        "layers",
				Usage:       "residual updates per run",
				Value:       512,
				Destination: &layers,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for the benchmark inputs",
				Value:       42,
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyBenchConfig(cmd, LoadConfig(), &width, &layers)

			if width <= 0 || layers <= 0 {
				return cli.Exit("error: width and layers must be positive", 2)
			}

			rng := rand.New(rand.NewSource(seed))
			blocks := make([][]float32, layers)
			for l := range blocks {
				blocks[l] = make([]float32, width)
				for i := range blocks[l] {
					blocks[l][i] = rng.Float32()*2 - 1
				}
			}

			fmt.Println("=== Fusenorm Benchmark ===")
			fmt.Printf("Width:    %d\n", width)
			fmt.Printf("Layers:   %d\n", layers)
			fmt.Printf("CPUs:     %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("AVX2:     %v\n", kernel.HasAVX2())
			fmt.Printf("Warmup:   %d runs\n", warmupRuns)
			fmt.Printf("Runs:     %d\n", benchRuns)
			fmt.Println()

			policies := []stream.Policy{stream.PolicyF32, stream.PolicyHalfFused, stream.PolicyHalf}
			elements := float64(width) * float64(layers)

			fmt.Println("=== Results ===")
			fmt.Printf("%-12s %12s %12s %12s\n", "Policy", "Best", "Avg", "Melem/s")

			for _, pol := range policies {
				st, err := stream.New(stream.Config{Width: int(width), Policy: pol})
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}

				for i := range int(warmupRuns) {
					log.Debug("warmup run", "policy", pol, "run", i+1)
					st.Reset()
					if _, err := st.Run(blocks); err != nil {
						return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
					}
				}

				best := time.Duration(0)
				var total time.Duration
				for i := range int(benchRuns) {
					st.Reset()
					start := time.Now()
					if _, err := st.Run(blocks); err != nil {
						return cli.Exit(fmt.Sprintf("error: benchmark run %d: %v", i+1, err), 1)
					}
					d := time.Since(start)
					total += d
					if best == 0 || d < best {
						best = d
					}
				}

				avg := total / time.Duration(benchRuns)
				mps := elements / best.Seconds() / 1e6
				fmt.Printf("%-12s %12s %12s %12.1f\n", pol, best.Round(time.Microsecond), avg.Round(time.Microsecond), mps)
			}

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))

			return nil
		},
	}
}
