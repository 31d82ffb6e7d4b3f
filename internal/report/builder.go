package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/logging"
	"github.com/cclenergy/solarquote/pkg/models"
	"github.com/cclenergy/solarquote/pkg/utils"
)

// ChartUnavailable is drawn on page 4 in place of a missing chart.
const ChartUnavailable = "Electricity cost chart unavailable"

// ChartCaption is drawn beneath the chart on page 4.
const ChartCaption = "Comparison of estimated electricity costs with/without solar system"

// DocumentInput is everything one quotation document is built from.
// Both images are optional.
type DocumentInput struct {
	Quote     models.Quote
	RoofImage []byte // PNG or JPEG
	Chart     []byte // PNG from ChartRenderer
}

// Outcome reports what a build produced.
type Outcome struct {
	Pages     int
	RoofImage bool // roof design image embedded on page 2
	Chart     bool // chart embedded on page 4
}

// BuilderOption configures a QuoteDocumentBuilder.
type BuilderOption func(*QuoteDocumentBuilder)

// WithClock sets the clock used to stamp the document's creation date.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *QuoteDocumentBuilder) { b.now = now }
}

// QuoteDocumentBuilder lays out the four-page quotation: cover letter, roof
// design, system and pricing, and cost comparison chart. Pages are always
// drawn in that order. It keeps no per-build state.
type QuoteDocumentBuilder struct {
	company config.CompanyConfig
	now     func() time.Time
}

// NewQuoteDocumentBuilder returns a builder printing the given company profile.
func NewQuoteDocumentBuilder(company config.CompanyConfig, opts ...BuilderOption) *QuoteDocumentBuilder {
	b := &QuoteDocumentBuilder{company: company, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the document to PDF bytes. Missing or unusable images are
// left out; any other drawing error fails the build and nothing is returned.
func (b *QuoteDocumentBuilder) Build(ctx context.Context, in DocumentInput) ([]byte, Outcome, error) {
	c := newPDFCanvas(PDFConfig{
		Title:   "Solar Quotation " + in.Quote.Customer.ProjectID,
		Author:  b.company.Name,
		Creator: "solarquote",
		Created: b.now(),
	})

	out, err := b.Draw(ctx, c, in)
	if err != nil {
		return nil, Outcome{}, err
	}
	out.Pages = c.PageCount()

	var buf bytes.Buffer
	if err := c.WriteTo(&buf); err != nil {
		return nil, Outcome{}, fmt.Errorf("build quote %s: %w", in.Quote.Customer.ProjectID, err)
	}
	return buf.Bytes(), out, nil
}

// Draw lays out all four pages onto c.
func (b *QuoteDocumentBuilder) Draw(ctx context.Context, c Canvas, in DocumentInput) (Outcome, error) {
	var out Outcome
	q := in.Quote

	b.CoverPage(c, q)
	out.RoofImage = b.RoofDesignPage(ctx, c, q, in.RoofImage)
	b.SystemPage(c, q)
	out.Chart = b.ChartPage(ctx, c, in.Chart)
	out.Pages = 4

	if err := c.Err(); err != nil {
		return Outcome{}, fmt.Errorf("build quote %s: %w", q.Customer.ProjectID, err)
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════════════
// Page 1: Cover Letter
// ════════════════════════════════════════════════════════════════════

// CoverPage draws the title, customer, company block, letter and footer.
func (b *QuoteDocumentBuilder) CoverPage(c Canvas, q models.Quote) {
	co := b.company
	cust := q.Customer
	c.AddPage()
	y := Margin

	c.SetFont(fontTitle)
	centerText(c, y, "Solar Quotation: "+cust.ProjectID)
	y += SectionGap

	c.SetFont(fontBody)
	c.Text(Margin, y, "Customer: "+cust.Name())
	y += LinePitch
	c.Text(Margin, y, "Property Address: "+cust.Address)
	y += LinePitch + HalfLine

	c.SetFont(fontHeading)
	c.Text(Margin, y, co.Name)
	y += LinePitch

	c.SetFont(fontSmall)
	contact := append(append([]string{}, co.Offices...), "Phone: "+co.Phone, "Visit: "+co.Website)
	for _, line := range contact {
		c.Text(Margin, y, line)
		y += LinePitch
	}
	y += HalfLine

	c.SetFont(fontBody)
	c.Text(Margin, y, "Dear "+cust.Name()+",")
	y += SectionGap

	letter := []string{
		fmt.Sprintf("Thank you for choosing %s to provide you with a", co.TradingName),
		"customized solar system solution. If you have any questions,",
		"please feel free to contact me directly during business hours.",
		"",
		fmt.Sprintf("Please note your project ID is %s.", cust.ProjectID),
		"Reference this ID for all future inquiries.",
	}
	for _, line := range letter {
		if line != "" {
			c.Text(Margin, y, line)
		}
		y += LinePitch
	}
	y += LinePitch

	c.SetFont(fontHeading)
	c.Text(Margin, y, "Thank you,")
	y += LinePitch
	c.Text(Margin, y, co.Signatory.Name)
	y += LinePitch

	c.SetFont(fontSmall)
	c.Text(Margin, y, co.Signatory.Phone)
	y += LinePitch
	c.Text(Margin, y, co.Signatory.Email)

	b.footer(c, co.About)
}

// ════════════════════════════════════════════════════════════════════
// Page 2: Roof Design
// ════════════════════════════════════════════════════════════════════

// RoofDesignPage draws the property details table and, when usable, the roof
// design image. It reports whether the image was embedded.
func (b *QuoteDocumentBuilder) RoofDesignPage(ctx context.Context, c Canvas, q models.Quote, roofImage []byte) bool {
	c.AddPage()
	y := Margin

	c.SetFont(fontTitle)
	centerText(c, y, "Solar System Roof Design")
	y += SectionGap

	c.SetFont(fontHeading)
	c.Text(Margin, y, "1. Property Details")
	y += LinePitch

	rows := [][2]string{
		{"Roof Material", q.Customer.RoofMaterial},
		{"Meter Box", q.Customer.MeterBox},
		{"Floor", q.Customer.Storey},
	}
	for _, row := range rows {
		c.Text(Margin, y, row[0])
		c.Text(Margin+ValueColumn, y, row[1])
		c.Line(Margin, y+RuleDrop, Margin+RuleWidth, y+RuleDrop)
		y += LinePitch
	}

	img, ok := optionalImage(ctx, "roof", roofImage)
	if !ok {
		return false
	}
	w := RoofImageWidth
	h := w * float64(img.Height) / float64(img.Width)
	if err := c.DrawImage(img, Margin, y+ImageGap, w, h); err != nil {
		logging.FromContext(ctx).Warn("roof image omitted", "err", err)
		return false
	}
	return true
}

// ════════════════════════════════════════════════════════════════════
// Page 3: System Details & Price
// ════════════════════════════════════════════════════════════════════

// SystemPage draws the equipment tables, daily generation and the price
// section. The total cost line is set larger and bolder than the item rows.
func (b *QuoteDocumentBuilder) SystemPage(c Canvas, q models.Quote) {
	sys := q.System
	c.AddPage()
	y := Margin

	c.SetFont(fontTitle)
	centerText(c, y, "2. Solar System Details")
	y += SectionGap

	c.SetFont(fontHeading)
	c.Text(Margin, y, "System Size: "+sys.SystemSize)
	y += SectionGap

	equipment := []struct {
		heading string
		rows    [][2]string
	}{
		{"Solar Panels:", [][2]string{
			{"Model:", sys.PanelModule},
			{"Quantity:", sys.PanelQty},
			{"Product Warranty:", sys.PanelWarranty},
			{"Performance Warranty:", sys.PanelPerformanceWarranty},
		}},
		{"Inverter:", [][2]string{
			{"Model:", sys.InverterModule},
			{"Quantity:", sys.InverterQty},
			{"Product Warranty:", sys.InverterWarranty},
			{"Performance Warranty:", sys.InverterPerformanceWarranty},
		}},
	}
	for _, eq := range equipment {
		c.SetFont(fontHeading)
		c.Text(Margin, y, eq.heading)
		y += LinePitch

		c.SetFont(fontSmall)
		for _, row := range eq.rows {
			c.Text(Margin+SubLabelIndent, y, row[0])
			c.Text(Margin+SubValueColumn, y, row[1])
			y += LinePitch
		}
		y += HalfLine
	}

	c.SetFont(fontSmallBold)
	c.Text(Margin, y, "Daily Power Generation:")
	c.SetFont(fontSmall)
	c.Text(Margin+DailyGenColumn, y, sys.DailyGeneration)
	y += SectionGap

	c.SetFont(fontTitle)
	centerText(c, y, "3. System Price")
	y += SectionGap

	p := q.Pricing
	c.SetFont(fontPriceRow)
	for _, row := range [][2]string{
		{"Federal Rebate (STC)", utils.PrefixDollar(p.STCRebate)},
		{"Price Before Rebate", utils.PrefixDollar(p.PriceBeforeRebate)},
		{"System Price:", utils.PrefixDollar(p.SystemPrice)},
	} {
		c.Text(Margin, y, row[0])
		c.Text(Margin+ValueColumn, y, row[1])
		y += LinePitch
	}
	y += HalfLine

	c.SetFont(fontTotal)
	c.Text(Margin, y, "Total Cost")
	c.Text(Margin+ValueColumn, y, utils.PrefixDollar(p.TotalCost))
}

// ════════════════════════════════════════════════════════════════════
// Page 4: Electricity Cost Comparison
// ════════════════════════════════════════════════════════════════════

// ChartPage draws the comparison chart with its caption, or the unavailable
// placeholder, then the footer. It reports whether the chart was embedded.
func (b *QuoteDocumentBuilder) ChartPage(ctx context.Context, c Canvas, chart []byte) bool {
	c.AddPage()
	y := Margin

	c.SetFont(fontTitle)
	centerText(c, y, "4. Electricity Cost Comparison")
	y += ChartTitleGap

	embedded := false
	if img, ok := optionalImage(ctx, "chart", chart); ok {
		bw, bh := ChartBox()
		w, h, dx, dy := fitImage(float64(img.Width), float64(img.Height), bw, bh)
		top := y + ImageGap
		if err := c.DrawImage(img, Margin+dx, top+dy, w, h); err != nil {
			logging.FromContext(ctx).Warn("chart omitted", "err", err)
		} else {
			embedded = true
			c.SetFont(fontSmall)
			centerText(c, top+bh+CaptionGap, ChartCaption)
		}
	}
	if !embedded {
		c.SetFont(fontBody)
		c.Text(Margin, y+ChartFallback, ChartUnavailable)
	}

	b.footer(c, []string{b.company.Name, b.company.Registration})
	return embedded
}

// footer draws lines in reading order so that the last one sits on the
// bottom margin.
func (b *QuoteDocumentBuilder) footer(c Canvas, lines []string) {
	c.SetFont(fontFooter)
	y := PageHeight - Margin - FooterLine*float64(len(lines)-1)
	for _, line := range lines {
		c.Text(Margin, y, line)
		y += FooterLine
	}
}

// optionalImage probes data for embedding. ok is false when there is no image
// or it cannot be used, and the page is then drawn without it.
func optionalImage(ctx context.Context, name string, data []byte) (Image, bool) {
	if len(data) == 0 {
		return Image{}, false
	}
	img, err := ProbeImage(name, data)
	if err != nil {
		logging.FromContext(ctx).Warn("image omitted", "image", name, "err", err)
		return Image{}, false
	}
	return img, true
}
