package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"popxf/adapters/excel"
	"popxf/adapters/postgres"
	"popxf/adapters/report"
	"popxf/internal/config"
	"popxf/internal/engine"
	"popxf/internal/scan"
	"popxf/internal/validation"
	"popxf/models"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "popxf",
		Short: "Validate, evaluate and scan POPxf prediction documents",
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newEvaluateCmd(),
		newScanCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validatorOptions() validation.Options {
	cfg, err := config.Load()
	if err != nil {
		return validation.Options{}
	}
	return validation.Options{AcceptAnySchemaVersion: cfg.Validator.AcceptAnySchemaVersion}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [document.json]",
		Short: "Check a document and list every violation found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			violations := validation.Validate(data, validatorOptions())
			if len(violations) == 0 {
				fmt.Println("OK: document is valid")
				return nil
			}
			for _, v := range violations {
				fmt.Println(v)
			}
			return fmt.Errorf("%d violation(s)", len(violations))
		},
	}
}

func newEvaluateCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "evaluate [document.json]",
		Short: "Evaluate all observables at one parameter point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(args[0])
			if err != nil {
				return err
			}
			point, err := parsePoint(sets)
			if err != nil {
				return err
			}

			results := eng.Evaluate(point)
			for i, name := range eng.Observables() {
				res := results[name]
				if res.Err != nil {
					fmt.Printf("%-30s ERROR: %v\n", name, res.Err)
					continue
				}
				fmt.Printf("%-30s %12.6g  (scale %g)\n", name, res.Central, eng.ScaleFor(i))
				for source, u := range res.Uncertainties {
					fmt.Printf("  %-28s %12.6g\n", "± "+source, u)
				}
				for _, w := range res.Warnings {
					fmt.Printf("  warning: %s\n", w)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil,
		"parameter value as name=re or name=re,im (repeatable)")
	return cmd
}

func newScanCmd() *cobra.Command {
	var pointsFile string
	var xlsxOut string
	var workers int
	var save bool

	cmd := &cobra.Command{
		Use:   "scan [document.json]",
		Short: "Evaluate a document over many parameter points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(args[0])
			if err != nil {
				return err
			}
			points, err := readPoints(pointsFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			res, err := scan.Run(ctx, eng, scan.Request{Points: points, Workers: workers})
			if err != nil {
				return err
			}

			summaries, err := res.Summaries()
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d points, %d tainted, %d failed\n",
				res.RunID, len(res.Centrals), res.Tainted, res.Failed)
			for i, name := range res.Observables {
				s := summaries[i]
				fmt.Printf("%-30s min %.6g  max %.6g  mean %.6g  sd %.6g\n",
					name, s.Min, s.Max, s.Mean, s.StdDev)
			}

			if xlsxOut != "" {
				if err := excel.WriteResult(res, xlsxOut); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", xlsxOut)
			}
			if save {
				if err := saveRun(ctx, eng, res); err != nil {
					return err
				}
				fmt.Println("saved to scan ledger")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pointsFile, "points", "", "JSON file with an array of parameter points")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "write results to an .xlsx workbook")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent evaluation workers")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to the configured database")
	_ = cmd.MarkFlagRequired("points")
	return cmd
}

func newReportCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report [document.json]",
		Short: "Print a human-readable summary of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(args[0])
			if err != nil {
				return err
			}
			if asHTML {
				os.Stdout.Write(report.HTML(eng))
				return nil
			}
			fmt.Print(report.Markdown(eng))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "render the report as HTML")
	return cmd
}

func buildEngine(path string) (*engine.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	eng, err := engine.Build(data, validatorOptions())
	if err != nil {
		var invalid *engine.InvalidDocumentError
		if errors.As(err, &invalid) {
			for _, v := range invalid.Violations {
				fmt.Fprintln(os.Stderr, v)
			}
		}
		return nil, err
	}
	return eng, nil
}

// parsePoint turns repeated --set flags into one parameter point.
func parsePoint(sets []string) (map[string]complex128, error) {
	point := make(map[string]complex128, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("bad --set %q, want name=re or name=re,im", s)
		}
		rePart, imPart, hasIm := strings.Cut(value, ",")
		re, err := strconv.ParseFloat(rePart, 64)
		if err != nil {
			return nil, fmt.Errorf("bad --set %q: %v", s, err)
		}
		im := 0.0
		if hasIm {
			im, err = strconv.ParseFloat(imPart, 64)
			if err != nil {
				return nil, fmt.Errorf("bad --set %q: %v", s, err)
			}
		}
		point[name] = complex(re, im)
	}
	return point, nil
}

// readPoints loads a JSON array of points, each {"name": [re] | [re, im]}.
func readPoints(path string) ([]scan.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("points file: %v", err)
	}
	points := make([]scan.Point, len(raw))
	for i, rp := range raw {
		point := make(scan.Point, len(rp))
		for name, parts := range rp {
			switch len(parts) {
			case 1:
				point[name] = complex(parts[0], 0)
			case 2:
				point[name] = complex(parts[0], parts[1])
			default:
				return nil, fmt.Errorf("points[%d][%s]: want [re] or [re, im]", i, name)
			}
		}
		points[i] = point
	}
	return points, nil
}

func saveRun(ctx context.Context, eng *engine.Engine, res *scan.Result) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("POPXF_DATABASE_URL is not configured")
	}
	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	ledger := postgres.NewScanLedger(db)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return err
	}
	run, err := models.NewScanRun(res, eng.Mode().String())
	if err != nil {
		return err
	}
	return ledger.SaveRun(ctx, run)
}
