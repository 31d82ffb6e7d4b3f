package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/infra"
	"github.com/cclenergy/solarquote/internal/logging"
	"github.com/cclenergy/solarquote/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Quote Generator: chart and document orchestration
// ════════════════════════════════════════════════════════════════════

// Request is one quotation to generate. RoofImagePath and Series are optional.
type Request struct {
	Quote         models.Quote
	RoofImagePath string
	Series        *models.CostSeries
}

// Result is a generated quotation document.
type Result struct {
	PDF      []byte
	Filename string // "Solar_Quote_<project_id>.pdf"
	Outcome  Outcome
}

// Generator renders the optional chart and then the document. Chart and
// image problems degrade the document instead of failing it.
type Generator struct {
	charts  *ChartRenderer
	builder *QuoteDocumentBuilder
	cache   *infra.Cache[[]byte] // rendered chart PNGs by series; may be nil
}

// NewGenerator wires a chart renderer and document builder.
func NewGenerator(charts *ChartRenderer, builder *QuoteDocumentBuilder) *Generator {
	return &Generator{charts: charts, builder: builder}
}

// NewGeneratorFromConfig builds a Generator from application configuration.
func NewGeneratorFromConfig(cfg *config.Config, opts ...BuilderOption) *Generator {
	g := NewGenerator(
		NewChartRenderer(WithDPI(cfg.Chart.DPI)),
		NewQuoteDocumentBuilder(cfg.Company, opts...),
	)
	if cfg.Chart.CacheTTL > 0 {
		g.SetChartCache(infra.NewCache[[]byte](cfg.Chart.CacheTTL, cfg.Chart.CacheEntries))
	}
	return g
}

// SetChartCache makes the generator reuse chart PNGs for identical series.
// Pass nil to disable caching.
func (g *Generator) SetChartCache(c *infra.Cache[[]byte]) { g.cache = c }

// Charts returns the generator's chart renderer.
func (g *Generator) Charts() *ChartRenderer { return g.charts }

// Generate produces the PDF for req.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With("project_id", req.Quote.Customer.ProjectID)
	ctx = logging.WithLogger(ctx, logger)

	in := DocumentInput{Quote: req.Quote}

	if req.RoofImagePath != "" {
		data, err := os.ReadFile(req.RoofImagePath)
		if err != nil {
			logger.Warn("roof image unreadable", "path", req.RoofImagePath, "err", err)
		} else {
			in.RoofImage = data
		}
	}

	if req.Series != nil {
		png, err := g.renderSeries(*req.Series)
		if err != nil {
			logger.Warn("chart skipped", "err", err)
		} else {
			in.Chart = png
		}
	}

	pdf, out, err := g.builder.Build(ctx, in)
	if err != nil {
		return nil, err
	}
	logger.Debug("quote generated", "pages", out.Pages, "roof_image", out.RoofImage, "chart", out.Chart, "bytes", len(pdf))

	return &Result{PDF: pdf, Filename: req.Quote.Filename(), Outcome: out}, nil
}

// IsChartError reports whether err came from chart input validation.
func IsChartError(err error) bool {
	return errors.Is(err, ErrSeriesLength) || errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrDegenerateSeries)
}

// RenderChart renders a standalone cost comparison chart.
func (g *Generator) RenderChart(ctx context.Context, s models.CostSeries) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := g.renderSeries(s)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return png, nil
}

// renderSeries renders s, consulting the chart cache when one is set.
// Failed renders are not cached.
func (g *Generator) renderSeries(s models.CostSeries) ([]byte, error) {
	if g.cache == nil {
		return g.charts.RenderSeries(s)
	}
	key := seriesKey(s)
	if png, ok := g.cache.Get(key); ok {
		return png, nil
	}
	png, err := g.charts.RenderSeries(s)
	if err != nil {
		return nil, err
	}
	g.cache.Set(key, png)
	return png, nil
}

func seriesKey(s models.CostSeries) string {
	h := sha256.New()
	fmt.Fprintf(h, "%q|%v|%v|%v|%v", s.Years, s.Before, s.After, s.BeforeTotal, s.AfterTotal)
	return hex.EncodeToString(h.Sum(nil))
}
