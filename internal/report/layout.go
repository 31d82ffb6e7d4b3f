package report

// Page geometry in points on US Letter. Vertical positions are measured
// from the top edge of the page and grow downward.
const (
	PageWidth  = 612.0
	PageHeight = 792.0

	Margin     = 72.0 // left margin, top margin and footer baseline inset
	LinePitch  = 24.0 // standard line advance
	SectionGap = 36.0 // advance after a title or section heading
	HalfLine   = 12.0 // blank half-line between blocks
	FooterLine = 12.0 // footer line advance

	// Label/value tables
	ValueColumn    = 200.0 // value x offset from the margin
	RuleWidth      = 400.0 // rule under each property row
	RuleDrop       = 5.0   // rule distance below the baseline
	SubLabelIndent = 20.0  // equipment sub-table label offset
	SubValueColumn = 150.0 // equipment sub-table value offset
	DailyGenColumn = 120.0 // daily generation value offset

	// Images
	RoofImageWidth = 200.0
	ImageGap       = 20.0 // gap between the preceding text and an image
	ChartAspect    = 0.6  // chart box height as a fraction of its width
	ChartTitleGap  = 30.0
	CaptionGap     = 20.0
	ChartFallback  = 50.0 // placeholder distance below the chart title
)

// Font is a face of the standard PDF Helvetica family.
type Font struct {
	Family string
	Style  string // "" regular, "B" bold
	Size   float64
}

// Bold reports whether the face is bold.
func (f Font) Bold() bool { return f.Style == "B" }

var (
	fontTitle     = Font{"Helvetica", "B", 16}
	fontHeading   = Font{"Helvetica", "B", 12}
	fontBody      = Font{"Helvetica", "", 12}
	fontSmall     = Font{"Helvetica", "", 10}
	fontSmallBold = Font{"Helvetica", "B", 10}
	fontFooter    = Font{"Helvetica", "", 8}
	fontPriceRow  = Font{"Helvetica", "", 12}
	fontTotal     = Font{"Helvetica", "B", 14}
)

// ChartBox returns the box the chart is fitted into on page 4.
func ChartBox() (w, h float64) {
	w = PageWidth - 2*Margin
	return w, w * ChartAspect
}

// fitImage scales an iw×ih image to fit a bw×bh box, preserving its aspect
// ratio, and returns the drawn size and the offsets that centre it.
func fitImage(iw, ih, bw, bh float64) (w, h, dx, dy float64) {
	if iw <= 0 || ih <= 0 {
		return 0, 0, 0, 0
	}
	scale := bw / iw
	if s := bh / ih; s < scale {
		scale = s
	}
	w, h = iw*scale, ih*scale
	return w, h, (bw - w) / 2, (bh - h) / 2
}
