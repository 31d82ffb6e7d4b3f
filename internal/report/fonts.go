package report

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// The Go fonts are parsed once per process and shared read-only.
var (
	fontsOnce    sync.Once
	regularFont  *truetype.Font
	boldFont     *truetype.Font
	fontsLoadErr error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsLoadErr = truetype.Parse(goregular.TTF); fontsLoadErr != nil {
			fontsLoadErr = fmt.Errorf("parse regular font: %w", fontsLoadErr)
			return
		}
		if boldFont, fontsLoadErr = truetype.Parse(gobold.TTF); fontsLoadErr != nil {
			fontsLoadErr = fmt.Errorf("parse bold font: %w", fontsLoadErr)
		}
	})
	return fontsLoadErr
}

// chartFaces are the sized faces used by one render. Faces carry a glyph
// cache and are not shared between renders.
type chartFaces struct {
	tick, label, axis, title font.Face
}

func newChartFaces(cfg ChartConfig) (chartFaces, error) {
	if err := loadFonts(); err != nil {
		return chartFaces{}, err
	}
	face := func(f *truetype.Font, size float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{Size: size, DPI: cfg.DPI, Hinting: font.HintingFull})
	}
	return chartFaces{
		tick:  face(regularFont, cfg.TickSize),
		label: face(regularFont, cfg.LabelSize),
		axis:  face(regularFont, cfg.AxisSize),
		title: face(boldFont, cfg.TitleSize),
	}, nil
}
