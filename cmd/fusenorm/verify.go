package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fusenorm/internal/logger"
	"github.com/samcharles93/fusenorm/internal/verify"
)

func verifyCmd() *cli.Command {
	var (
		seed     int64
		asJSON   bool
		caseName string
		width    int64
		layers   int64
		gen      string
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Run the fused add+RMSNorm verification suite",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for the deterministic case generators",
				Value:       42,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the report as JSON",
				Destination: &asJSON,
			},
			&cli.StringFlag{
				Name:        "case",
				Usage:       "run only the builtin case with this name",
				Destination: &caseName,
			},
			&cli.Int64Flag{
				Name:        "width",
				Usage:       "run a single ad-hoc case with this width instead of the builtin set",
				Destination: &width,
			},
			&cli.Int64Flag{
				Name:        "layers",
				Usage:       "layers for the ad-hoc case",
				Value:       8,
				Destination: &layers,
			},
			&cli.StringFlag{
				Name:        "gen",
				Usage:       "generator for the ad-hoc case (uniform, spike, growth, adversarial)",
				Value:       verify.GenUniform,
				Destination: &gen,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyVerifyConfig(cmd, LoadConfig(), &seed)

			cases, err := selectCases(seed, caseName, width, layers, gen)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 2)
			}

			log.Info("running verification", "seed", seed, "cases", len(cases))
			rep, err := verify.RunSuite(seed, cases)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				if err := rep.EncodeJSON(os.Stdout); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			} else if err := rep.WriteText(os.Stdout); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if !rep.Pass() {
				return cli.Exit(fmt.Sprintf("%d case(s) failed", rep.Failed), 1)
			}
			return nil
		},
	}
}

// selectCases resolves the --case / --width filters into a case list. Nil
// means the builtin set.
func selectCases(seed int64, caseName string, width, layers int64, gen string) ([]verify.Case, error) {
	if width > 0 {
		expect := gen != verify.GenUniform && gen != ""
		return []verify.Case{{
			Name:           "adhoc",
			Width:          int(width),
			Layers:         int(layers),
			Seed:           seed,
			Gen:            gen,
			ExpectOverflow: expect,
		}}, nil
	}
	if caseName == "" {
		return nil, nil
	}
	for _, c := range verify.Builtin(seed) {
		if c.Name == caseName {
			return []verify.Case{c}, nil
		}
	}
	return nil, fmt.Errorf("unknown builtin case %q", caseName)
}
