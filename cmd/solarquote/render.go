package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/intake"
	"github.com/cclenergy/solarquote/internal/logging"
	"github.com/cclenergy/solarquote/internal/quotefile"
	"github.com/cclenergy/solarquote/internal/report"
	"github.com/cclenergy/solarquote/internal/upload"
	"github.com/cclenergy/solarquote/pkg/models"
)

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render [file...]",
	Short: "Render quote files to PDF",
	Long: `Render one or more quote files (TOML, YAML or JSON) to quotation PDFs.

Examples:
  solarquote render quotes/CCL-1042.toml
  solarquote render --out build --jobs 4 quotes/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		jobs, _ := cmd.Flags().GetInt("jobs")

		gen := report.NewGeneratorFromConfig(cfg)
		ctx := logging.WithLogger(cmd.Context(), logger)
		progress := logging.NewProgress(logger)

		results := renderFiles(ctx, gen, cfg, args, outDir, jobs)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				printError("%s: %v", r.Source, r.Err)
				continue
			}
			printSuccess("%s", r.Source)
			printFile(r.Output)
			if !r.Outcome.Chart {
				printDetail("no cost comparison chart")
			}
		}
		progress.Done(fmt.Sprintf("Rendered %d of %d quotes", len(results)-failed, len(results)))

		if failed > 0 {
			return fmt.Errorf("%d of %d quotes failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringP("out", "o", ".", "output directory")
	renderCmd.Flags().IntP("jobs", "j", 4, "number of files rendered concurrently")
}

// renderResult is the outcome for one quote file.
type renderResult struct {
	Source  string
	Output  string
	Outcome report.Outcome
	Err     error
}

// outputClaims records which source owns each output file in one run.
type outputClaims struct {
	mu     sync.Mutex
	owners map[string]string
}

// claim reserves name for source. It fails if another source already
// claimed the same name.
func (o *outputClaims) claim(name, source string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owners == nil {
		o.owners = make(map[string]string)
	}
	if owner, taken := o.owners[name]; taken {
		return fmt.Errorf("output %s is already produced by %s", name, owner)
	}
	o.owners[name] = source
	return nil
}

// outputName maps a quote filename to a safe base name inside the output
// directory. Path separators become "_" so project ids such as
// "CCL/2025/7" stay distinct and cannot leave the directory.
func outputName(filename string) (string, error) {
	name := upload.SecureFilename(strings.NewReplacer("/", "_", `\`, "_").Replace(filename))
	if name == "" || !strings.HasSuffix(name, ".pdf") {
		return "", fmt.Errorf("cannot derive an output file name from %q", filename)
	}
	return name, nil
}

// renderFiles renders every file, at most jobs at a time. A failing file
// does not stop the others. Two files resolving to the same output name are
// an error for the later one. Results are sorted by source path.
func renderFiles(ctx context.Context, gen *report.Generator, cfg *config.Config, files []string, outDir string, jobs int) []renderResult {
	if jobs < 1 {
		jobs = 1
	}

	var mu sync.Mutex
	var claims outputClaims
	results := make([]renderResult, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, path := range files {
		g.Go(func() error {
			res := renderFile(gctx, gen, cfg, &claims, path, outDir)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil // non-fatal
		})
	}
	g.Wait() //nolint:errcheck

	sort.Slice(results, func(i, j int) bool { return results[i].Source < results[j].Source })
	return results
}

func renderFile(ctx context.Context, gen *report.Generator, cfg *config.Config, claims *outputClaims, path, outDir string) renderResult {
	res := renderResult{Source: path}

	f, err := quotefile.Load(path)
	if err != nil {
		res.Err = err
		return res
	}
	req, err := f.Request(cfg.Chart.StartYear)
	if err != nil {
		res.Err = err
		return res
	}
	name, err := outputName(req.Quote.Filename())
	if err != nil {
		res.Err = err
		return res
	}
	if err := claims.claim(name, path); err != nil {
		res.Err = err
		return res
	}
	out, err := gen.Generate(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		res.Err = err
		return res
	}
	res.Output = filepath.Join(outDir, name)
	if err := os.WriteFile(res.Output, out.PDF, 0o644); err != nil {
		res.Err = err
		return res
	}
	res.Outcome = out.Outcome
	return res
}

// --- Chart Command ---

var chartCmd = &cobra.Command{
	Use:   "chart [file]",
	Short: "Render a cost comparison chart to PNG",
	Long: `Render the electricity cost comparison chart from a quote file's chart
section, or from comma-separated values given as flags.

Examples:
  solarquote chart quotes/CCL-1042.toml --output chart.png
  solarquote chart --before 1000,1050,... --after -200,-180,... -o chart.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		var req intake.ChartRequest
		if len(args) == 1 {
			f, err := quotefile.Load(args[0])
			if err != nil {
				return err
			}
			if f.Chart == nil || f.Chart.Empty() {
				return fmt.Errorf("%s has no chart section", args[0])
			}
			req = *f.Chart
		} else {
			values := map[string][]string{}
			for flag, field := range map[string]string{
				"before":       intake.FieldBeforeCosts,
				"after":        intake.FieldAfterCosts,
				"before-total": intake.FieldBeforeTotal,
				"after-total":  intake.FieldAfterTotal,
			} {
				if v, _ := cmd.Flags().GetString(flag); v != "" {
					values[field] = []string{v}
				}
			}
			parsed, ok, err := intake.ParseChartForm(values)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("provide a quote file or --before and --after")
			}
			req = parsed
		}

		if err := writeChart(cmd.Context(), report.NewGeneratorFromConfig(cfg), req.Series(cfg.Chart.StartYear), output); err != nil {
			return err
		}
		printSuccess("Chart written")
		printFile(output)
		return nil
	},
}

func init() {
	chartCmd.Flags().StringP("output", "o", "chart.png", "output PNG path")
	chartCmd.Flags().String("before", "", "annual costs without solar, comma-separated")
	chartCmd.Flags().String("after", "", "annual costs with solar, comma-separated")
	chartCmd.Flags().String("before-total", "", "total without solar (default: sum)")
	chartCmd.Flags().String("after-total", "", "total with solar (default: sum)")
}

func writeChart(ctx context.Context, gen *report.Generator, s models.CostSeries, output string) error {
	png, err := gen.RenderChart(ctx, s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(output, png, 0o644)
}
