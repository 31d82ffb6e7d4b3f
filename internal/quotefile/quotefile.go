// Package quotefile reads quote inputs for the command line: the same fields
// as the web form, plus an optional roof image path and cost series, stored
// as TOML, YAML or JSON.
package quotefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cclenergy/solarquote/internal/intake"
	"github.com/cclenergy/solarquote/internal/report"
)

// ErrUnsupportedFormat is returned for files that are not .toml, .yaml, .yml or .json.
var ErrUnsupportedFormat = errors.New("unsupported quote file format")

// File is a decoded quote file.
//
//	roof_image = "roof.png"   # relative to the quote file
//	[form]
//	project_id = "CCL-1042"
//	[chart]
//	before_costs = [1000.0, ...]
type File struct {
	Form      map[string]interface{} `toml:"form"       yaml:"form"       json:"form"`
	RoofImage string                 `toml:"roof_image" yaml:"roof_image" json:"roof_image"`
	Chart     *intake.ChartRequest   `toml:"chart"      yaml:"chart"      json:"chart"`

	path string
}

// Load reads and decodes a quote file, choosing the decoder by extension.
// Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quote file: %w", err)
	}

	f := &File{path: path}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode %s: unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Values converts the form table to form values. Scalars are stringified;
// nested tables and lists are rejected.
func (f *File) Values() (url.Values, error) {
	keys := make([]string, 0, len(f.Form))
	for k := range f.Form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		switch v := f.Form[k].(type) {
		case string:
			values.Set(k, v)
		case bool, int, int64, float64, json.Number:
			values.Set(k, fmt.Sprint(v))
		case nil:
			values.Set(k, "")
		default:
			return nil, fmt.Errorf("form field %s: unsupported value of type %T", k, v)
		}
	}
	return values, nil
}

// RoofImagePath resolves the roof image relative to the quote file.
func (f *File) RoofImagePath() string {
	if f.RoofImage == "" || filepath.IsAbs(f.RoofImage) {
		return f.RoofImage
	}
	return filepath.Join(filepath.Dir(f.path), f.RoofImage)
}

// Request builds a generation request with the same intake rules as the
// web form.
func (f *File) Request(startYear int) (report.Request, error) {
	values, err := f.Values()
	if err != nil {
		return report.Request{}, err
	}
	q, err := intake.ParseQuote(values)
	if err != nil {
		return report.Request{}, fmt.Errorf("%s: %w", f.path, err)
	}

	req := report.Request{Quote: q, RoofImagePath: f.RoofImagePath()}
	if f.Chart != nil && !f.Chart.Empty() {
		s := f.Chart.Series(startYear)
		req.Series = &s
	}
	return req, nil
}
