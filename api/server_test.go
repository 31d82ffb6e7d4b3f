package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/intake"
	"github.com/cclenergy/solarquote/internal/logging"
	"github.com/cclenergy/solarquote/internal/report"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Upload.Dir = t.TempDir()
	cfg.Chart.DPI = 30
	cfg.Server.RenderInterval = 0
	return cfg
}

func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerWith(t, testConfig(t))
}

func testServerWith(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	gen := report.NewGenerator(
		report.NewChartRenderer(report.WithDPI(cfg.Chart.DPI)),
		report.NewQuoteDocumentBuilder(cfg.Company, report.WithClock(func() time.Time { return fixed })),
	)
	srv, err := NewServer(cfg, log.New(io.Discard), WithGenerator(gen), WithVersion("test"))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func quoteForm() url.Values {
	v := url.Values{
		intake.FieldProjectID:    {"CCL-1042"},
		intake.FieldFirstName:    {"Jane"},
		intake.FieldLastName:     {"Citizen"},
		intake.FieldAddress:      {"1 Sunny St, Brisbane QLD 4000"},
		intake.FieldRoofMaterial: {"Tile"},
		intake.FieldMeterBox:     {"Single phase"},
		intake.FieldStorey:       {"Single"},
	}
	for _, f := range intake.SystemFields {
		v.Set(f, "value "+f)
	}
	for _, f := range intake.PricingFields {
		v.Set(f, "1,000")
	}
	return v
}

func costSeries() (before, after string) {
	b := make([]string, 10)
	a := make([]string, 10)
	for i := range b {
		b[i] = "1000"
		a[i] = "-200"
	}
	return strings.Join(b, ","), strings.Join(a, ",")
}

func formRequest(target string, v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, v url.Values, filename string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vals := range v {
		for _, val := range vals {
			if err := mw.WriteField(k, val); err != nil {
				t.Fatalf("WriteField: %v", err)
			}
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(intake.FieldRoofImage, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(file) //nolint:errcheck
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func uploadCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

// ════════════════════════════════════════════════════════════════════
// Server construction
// ════════════════════════════════════════════════════════════════════

func TestNewServerNilConfig(t *testing.T) {
	if _, err := NewServer(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewServerDefaultGenerator(t *testing.T) {
	srv, err := NewServer(testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv.gen == nil || srv.logger == nil || srv.uploads == nil {
		t.Fatal("server not fully wired")
	}
	if srv.version != "dev" {
		t.Errorf("version = %q, want dev", srv.version)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if !resp.Success {
				t.Fatal("expected success")
			}
			data, ok := resp.Data.(map[string]interface{})
			if !ok {
				t.Fatalf("data type = %T", resp.Data)
			}
			if data["status"] != "ok" || data["version"] != "test" {
				t.Errorf("data = %v", data)
			}
		})
	}
}

func TestRequestIDHeaderPassedThrough(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Embedded form
// ════════════════════════════════════════════════════════════════════

func TestIndexServesForm(t *testing.T) {
	srv := testServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	form := doc.Find("form#quote-form")
	if form.Length() != 1 {
		t.Fatal("quote form not found")
	}
	if action, _ := form.Attr("action"); action != "/generate" {
		t.Errorf("action = %q, want /generate", action)
	}
	if enc, _ := form.Attr("enctype"); enc != "multipart/form-data" {
		t.Errorf("enctype = %q", enc)
	}

	names := map[string]bool{}
	form.Find("input").Each(func(_ int, s *goquery.Selection) {
		if n, ok := s.Attr("name"); ok {
			names[n] = true
		}
	})

	want := []string{
		intake.FieldProjectID, intake.FieldFirstName, intake.FieldLastName, intake.FieldAddress,
		intake.FieldRoofMaterial, intake.RoofOtherDetail, intake.FieldMeterBox,
		intake.FieldStorey, intake.StoreyOtherDetail, intake.FieldRoofImage,
		intake.FieldBeforeCosts, intake.FieldAfterCosts, intake.FieldBeforeTotal, intake.FieldAfterTotal,
	}
	want = append(want, intake.SystemFields...)
	want = append(want, intake.PricingFields...)
	for _, n := range want {
		if !names[n] {
			t.Errorf("form has no input named %q", n)
		}
	}
}

func TestIndexRadioSentinels(t *testing.T) {
	srv := testServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	tests := []struct {
		name, value string
	}{
		{intake.FieldRoofMaterial, intake.RoofOtherValue},
		{intake.FieldStorey, intake.StoreyOtherValue},
	}
	for _, tt := range tests {
		sel := doc.Find(`input[type=radio][name="` + tt.name + `"][value="` + tt.value + `"]`)
		if sel.Length() != 1 {
			t.Errorf("no %s radio with value %q", tt.name, tt.value)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/style.css", http.StatusOK},
		{"/index.html", http.StatusOK},
		{"/missing.js", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServeUIDisabled(t *testing.T) {
	srv := testServer(t)
	srv.SetServeUI(false)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// POST /generate
// ════════════════════════════════════════════════════════════════════

func TestGenerateURLEncoded(t *testing.T) {
	srv := testServer(t)
	rec := serve(srv, formRequest("/generate", quoteForm()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	disp, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("Content-Disposition: %v", err)
	}
	if disp != "attachment" || params["filename"] != "Solar_Quote_CCL-1042.pdf" {
		t.Errorf("disposition = %q %v", disp, params)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestGenerateMissingFields(t *testing.T) {
	srv := testServer(t)
	v := quoteForm()
	v.Del(intake.FieldLastName)
	v.Del("total_cost")

	rec := serve(srv, formRequest("/generate", v))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("expected failure")
	}
	for _, f := range []string{intake.FieldLastName, "total_cost"} {
		if !strings.Contains(resp.Error, f) {
			t.Errorf("error %q does not name %s", resp.Error, f)
		}
	}
}

func TestGenerateWithRoofImage(t *testing.T) {
	cfg := testConfig(t)
	srv := testServerWith(t, cfg)

	rec := serve(srv, multipartRequest(t, "/generate", quoteForm(), "roof design.png", pngBytes(t, 40, 20)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if n := uploadCount(t, cfg.Upload.Dir); n != 1 {
		t.Errorf("uploads = %d, want 1", n)
	}
}

func TestGenerateDisallowedUploadIgnored(t *testing.T) {
	cfg := testConfig(t)
	srv := testServerWith(t, cfg)

	rec := serve(srv, multipartRequest(t, "/generate", quoteForm(), "roof.gif", []byte("GIF89a")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if n := uploadCount(t, cfg.Upload.Dir); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
}

func TestGenerateUnusableImageStillSucceeds(t *testing.T) {
	srv := testServer(t)
	rec := serve(srv, multipartRequest(t, "/generate", quoteForm(), "roof.png", []byte("not really a png")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateTruncatedImageStillSucceeds(t *testing.T) {
	srv := testServer(t)
	truncated := pngBytes(t, 40, 30)[:60]
	rec := serve(srv, multipartRequest(t, "/generate", quoteForm(), "roof.png", truncated))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestGenerateWithCostSeries(t *testing.T) {
	srv := testServer(t)

	before, after := costSeries()
	tests := []struct {
		name   string
		before string
		after  string
	}{
		{"valid series", before, after},
		{"short series", "1,2,3", "4,5,6"},
		{"not numbers", "a,b", "c,d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := quoteForm()
			v.Set(intake.FieldBeforeCosts, tt.before)
			v.Set(intake.FieldAfterCosts, tt.after)
			rec := serve(srv, formRequest("/generate", v))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateBodyTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxBytes = 1024
	srv := testServerWith(t, cfg)

	rec := serve(srv, multipartRequest(t, "/generate", quoteForm(), "roof.png", bytes.Repeat([]byte{0}, 4096)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// POST /chart
// ════════════════════════════════════════════════════════════════════

func TestChartJSON(t *testing.T) {
	srv := testServer(t)

	before := make([]float64, 10)
	after := make([]float64, 10)
	for i := range before {
		before[i] = 1000 + float64(i)*50
		after[i] = -200
	}
	body, _ := json.Marshal(intake.ChartRequest{BeforeCosts: before, AfterCosts: after})

	for _, path := range []string{"/chart", "/api/v1/chart"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			rec := serve(srv, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %q", ct)
			}
			cfg, err := png.DecodeConfig(rec.Body)
			if err != nil {
				t.Fatalf("decode png: %v", err)
			}
			if cfg.Width != 360 || cfg.Height != 240 {
				t.Errorf("size = %dx%d, want 360x240", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestChartForm(t *testing.T) {
	srv := testServer(t)
	before, after := costSeries()
	v := url.Values{
		intake.FieldBeforeCosts: {before},
		intake.FieldAfterCosts:  {after},
		intake.FieldBeforeTotal: {"$10000"},
	}
	rec := serve(srv, formRequest("/chart", v))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("decode png: %v", err)
	}
}

func TestChartErrors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty json", "application/json", `{}`},
		{"bad json", "application/json", `{"before_costs":`},
		{"unknown field", "application/json", `{"before_costs":[1],"after_costs":[1],"colour":"red"}`},
		{"wrong length", "application/json", `{"before_costs":[1,2,3],"after_costs":[1,2,3]}`},
		{"all zero", "application/json", `{"before_costs":[0,0,0,0,0,0,0,0,0,0],"after_costs":[0,0,0,0,0,0,0,0,0,0]}`},
		{"empty form", "application/x-www-form-urlencoded", ``},
		{"bad number", "application/x-www-form-urlencoded", `before_costs=1,x&after_costs=1,2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chart", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := serve(srv, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Config endpoints
// ════════════════════════════════════════════════════════════════════

func TestGetConfig(t *testing.T) {
	cfg := testConfig(t)
	srv, err := NewServer(cfg, log.New(io.Discard), WithConfigFile("/etc/solarquote/config.yaml"))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    ConfigResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Data.Config.Company.Name != cfg.Company.Name {
		t.Errorf("company = %q", resp.Data.Config.Company.Name)
	}
	if resp.Data.ConfigFile != "/etc/solarquote/config.yaml" {
		t.Errorf("config_file = %q", resp.Data.ConfigFile)
	}
}

func TestConfigStatus(t *testing.T) {
	cfg := testConfig(t)
	srv := testServerWith(t, cfg)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/config/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data StatusResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Settings) == 0 {
		t.Error("no settings reported")
	}
	if !resp.Data.UploadDir.Exists || !resp.Data.UploadDir.Writable {
		t.Errorf("upload dir = %+v", resp.Data.UploadDir)
	}
}

func TestRenderThrottle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RenderBurst = 1
	cfg.Server.RenderInterval = time.Hour
	srv := testServerWith(t, cfg)
	srv.renderWait = 10 * time.Millisecond

	before, after := costSeries()
	v := url.Values{intake.FieldBeforeCosts: {before}, intake.FieldAfterCosts: {after}}

	if rec := serve(srv, formRequest("/chart", v)); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := serve(srv, formRequest("/chart", v))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// health is never throttled
	if rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
}

func TestWriteJSONLogsToRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(logging.WithLogger(req.Context(), log.New(&buf)))

	rec := httptest.NewRecorder()
	writeJSON(rec, req, http.StatusOK, APIResponse{Success: true, Data: make(chan int)})

	if !strings.Contains(buf.String(), "failed to write JSON response") {
		t.Errorf("request logger output = %q", buf.String())
	}
}
