package region

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Scanner finds title blocks in a document.
type Scanner struct {
	Logger *log.Logger
}

// NewScanner creates a scanner. A nil logger uses log.Default().
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{Logger: logger}
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Regions []Region   // matching blocks in space order
	Space   string     // active space name
	Model   bool       // active space is model space
	View    *geom.View // view used for the transform, nil if unavailable
	Skipped int        // matching blocks whose extents could not be read
}

// Scan returns every block reference in the active space whose effective
// name matches one of names, compared case-insensitively. Blocks with
// unreadable extents are skipped. The returned regions keep the order of
// the underlying space.
//
// A failure to open the transaction or resolve the active space is returned
// as ErrCodeLayout.
func (s *Scanner) Scan(ctx context.Context, doc drawing.Document, names []string) (*ScanResult, error) {
	want := nameSet(names)
	res := &ScanResult{}

	err := doc.Read(ctx, func(tx drawing.Tx) error {
		space, err := tx.ActiveSpace()
		if err != nil {
			return err
		}
		res.Space = space.Name()
		res.Model = space.IsModel()

		if res.Model {
			if v, err := doc.CurrentView(ctx); err != nil {
				s.Logger.Debug("current view unavailable, using world coordinates", "drawing", doc.Path(), "err", err)
			} else {
				res.View = &v
			}
		}

		refs, err := space.BlockRefs()
		if err != nil {
			return err
		}
		for _, ref := range refs {
			name, err := ref.EffectiveName()
			if err != nil {
				s.Logger.Debug("skip block without name", "handle", ref.Handle(), "err", err)
				continue
			}
			if _, ok := want[strings.ToLower(name)]; !ok {
				continue
			}
			ext, err := ref.Extents()
			if err != nil {
				s.Logger.Debug("skip block without extents", "handle", ref.Handle(), "name", name, "err", err)
				res.Skipped++
				continue
			}
			ext = ext.Normalized()
			res.Regions = append(res.Regions, Region{
				Name:    name,
				Handle:  ref.Handle(),
				Layout:  res.Space,
				Model:   res.Model,
				Extents: ext,
				Window:  ToWindow(ext, res.View, res.Model),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, err, "scan %s", doc.Path())
	}
	return res, nil
}

// ParseNames splits a delimited list of block names. Commas and semicolons
// separate names; blanks are dropped.
func ParseNames(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[strings.ToLower(n)] = struct{}{}
		}
	}
	return set
}
