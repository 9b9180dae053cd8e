package chromeengine

import (
	"bytes"
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/titleplot/pkg/drawing/jsondoc"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

func TestParams(t *testing.T) {
	tests := []struct {
		name    string
		spec    jsondoc.PageSpec
		w, h    float64
		wantErr bool
	}{
		{"A4 portrait", jsondoc.PageSpec{Width: 210, Height: 297}, 8.2677, 11.6929, false},
		{"A3 landscape", jsondoc.PageSpec{Width: 420, Height: 297}, 16.5354, 11.6929, false},
		{"ANSI D", jsondoc.PageSpec{Width: 863.6, Height: 558.8}, 34, 22, false},
		{"zero width", jsondoc.PageSpec{Width: 0, Height: 297}, 0, 0, true},
		{"NaN height", jsondoc.PageSpec{Width: 210, Height: math.NaN()}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newParams(tt.spec)
			if tt.wantErr {
				if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			a := p.action()
			if math.Abs(a.PaperWidth-tt.w) > 1e-3 || math.Abs(a.PaperHeight-tt.h) > 1e-3 {
				t.Errorf("paper = %.4f x %.4f, want %.4f x %.4f", a.PaperWidth, a.PaperHeight, tt.w, tt.h)
			}
			if a.MarginTop != 0 || a.MarginLeft != 0 || a.Landscape || a.Scale != 1 {
				t.Errorf("print params = %+v", a)
			}
		})
	}
}

func TestDocumentStripsProlog(t *testing.T) {
	svg := []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>\n")
	html := document(svg, jsondoc.PageSpec{Width: 420, Height: 297})
	if strings.Contains(html, "<?xml") {
		t.Error("xml prolog left inside html")
	}
	if !strings.Contains(html, "size:420.00mm 297.00mm") || !strings.Contains(html, "<body><svg") {
		t.Errorf("html = %s", html)
	}
}

// TestPrintChrome needs a local Chrome. Set TITLEPLOT_TEST_CHROME=1 to run.
func TestPrintChrome(t *testing.T) {
	if os.Getenv("TITLEPLOT_TEST_CHROME") == "" {
		t.Skip("TITLEPLOT_TEST_CHROME not set")
	}
	p := New(Config{Timeout: time.Minute, NoSandbox: true}, nil)
	defer p.Close()

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="210mm" height="297mm" viewBox="0 0 210 297">` +
		`<polyline stroke="#000" fill="none" points="10,10 200,287"/></svg>`)
	pdf, err := p.Print(context.Background(), svg, jsondoc.PageSpec{Width: 210, Height: 297})
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}
