// Command grade grades a solution file against a YAML challenge catalog
// without Postgres or Redis.
//
//	grade --catalog challenges.yaml --challenge two-sum solution.js
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"gitlab.com/codegrader.net/internal/adapter/catalog"
	"gitlab.com/codegrader.net/internal/adapter/jsruntime"
	"gitlab.com/codegrader.net/internal/adapter/logging"
	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	"gitlab.com/codegrader.net/internal/domain"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "grade",
		Usage:     "grade a solution against a challenge catalog",
		ArgsUsage: "<solution file | ->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "catalog",
				Aliases:  []string{"c"},
				Usage:    "path to the YAML challenge catalog",
				Sources:  cli.EnvVars("CATALOG_PATH"),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "challenge",
				Aliases:  []string{"id"},
				Usage:    "challenge id to grade against",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the verdict as JSON",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "error",
				Usage: "debug, info, warn or error",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("exactly one solution file is required", 2)
			}
			source, err := readSource(cmd.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			verdict, err := gradeSource(ctx, cmd.String("catalog"), cmd.String("challenge"), source, cmd.String("log-level"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(verdict); err != nil {
					return err
				}
			} else {
				printVerdict(out, cmd.String("challenge"), verdict)
			}

			if !verdict.IsCorrect {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func readSource(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read solution: %w", err)
	}
	return string(raw), nil
}

func gradeSource(ctx context.Context, catalogPath, challengeID, source, logLevel string) (*domain.Verdict, error) {
	store, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}

	logger := logging.NewZapLogger(logLevel)
	defer func() { _ = logger.Sync() }()

	cfg := config.NewGradingConfig()
	sandbox := jsruntime.New(logger, jsruntime.WithMaxCallStackSize(cfg.MaxCallStackSize))
	svc, err := grading.NewGradingService(store, nil, sandbox, cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc.Grade(ctx, grading.GradeRequest{ChallengeID: challengeID, SourceCode: source})
}

func printVerdict(w io.Writer, challengeID string, v *domain.Verdict) {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)

	faint.Fprintf(w, "%s (%s tier)\n", challengeID, v.Tier)
	for _, r := range v.Results {
		if r.Pass {
			pass.Fprint(w, "  PASS ")
		} else {
			fail.Fprint(w, "  FAIL ")
		}
		fmt.Fprintln(w, r.Message)
	}

	summary := fmt.Sprintf("%d/%d passed", v.PassedTests, v.TotalTests)
	if v.IsCorrect {
		pass.Fprintf(w, "correct: %s\n", summary)
	} else {
		fail.Fprintf(w, "incorrect: %s\n", summary)
	}
}
