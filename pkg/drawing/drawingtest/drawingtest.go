// Package drawingtest provides in-memory implementations of the drawing
// interfaces for tests.
package drawingtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Block is a block reference.
type Block struct {
	ID      string
	Name    string
	NameErr error
	Ext     geom.Extents
	ExtErr  error
}

func (b *Block) Handle() string { return b.ID }

func (b *Block) EffectiveName() (string, error) { return b.Name, b.NameErr }

func (b *Block) Extents() (geom.Extents, error) { return b.Ext, b.ExtErr }

// NewBlock returns a block with lower-left corner (x, y) and size w x h.
func NewBlock(id, name string, x, y, w, h float64) *Block {
	return &Block{
		ID:   id,
		Name: name,
		Ext:  geom.Extents{Min: geom.Point3{X: x, Y: y}, Max: geom.Point3{X: x + w, Y: y + h}},
	}
}

// Space is a drawing space.
type Space struct {
	SpaceName string
	Model     bool
	Blocks    []*Block
	Err       error
}

func (s *Space) Name() string  { return s.SpaceName }
func (s *Space) IsModel() bool { return s.Model }

func (s *Space) BlockRefs() ([]drawing.BlockRef, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	refs := make([]drawing.BlockRef, len(s.Blocks))
	for i, b := range s.Blocks {
		refs[i] = b
	}
	return refs, nil
}

// Doc is an in-memory document.
type Doc struct {
	PathName    string
	Active      *Space
	ActiveErr   error
	ReadErr     error
	View        *geom.View
	FP          string
	FPErr       error
	Modified    time.Time
	LockErr     error
	SettingsErr error
	Cat         *Catalog
	Eng         *Engine

	mu       sync.Mutex
	locked   bool
	Locks    int
	Closed   int
	Settings []*Settings
}

func (d *Doc) Path() string { return d.PathName }

func (d *Doc) Lock(ctx context.Context) (func() error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LockErr != nil {
		return nil, d.LockErr
	}
	if d.locked {
		return nil, fmt.Errorf("%s is locked", d.PathName)
	}
	d.locked = true
	d.Locks++
	return func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.locked = false
		return nil
	}, nil
}

// IsLocked reports whether the lock is currently held.
func (d *Doc) IsLocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}

type tx struct{ d *Doc }

func (t tx) ActiveSpace() (drawing.Space, error) {
	if t.d.ActiveErr != nil {
		return nil, t.d.ActiveErr
	}
	if t.d.Active == nil {
		return nil, errors.New("no active space")
	}
	return t.d.Active, nil
}

func (d *Doc) Read(ctx context.Context, fn func(drawing.Tx) error) error {
	if d.ReadErr != nil {
		return d.ReadErr
	}
	return fn(tx{d})
}

func (d *Doc) CurrentView(ctx context.Context) (geom.View, error) {
	if d.View == nil {
		return geom.View{}, errors.New("no view")
	}
	return *d.View, nil
}

func (d *Doc) Fingerprint(ctx context.Context) (string, error) { return d.FP, d.FPErr }

func (d *Doc) Timestamp() (time.Time, error) { return d.Modified, nil }

func (d *Doc) NewPlotSettings(layout string) (drawing.PlotSettings, error) {
	if d.SettingsErr != nil {
		return nil, d.SettingsErr
	}
	s := NewSettings(d.catalog())
	d.mu.Lock()
	d.Settings = append(d.Settings, s)
	d.mu.Unlock()
	return s, nil
}

func (d *Doc) catalog() *Catalog {
	if d.Cat == nil {
		d.Cat = DefaultCatalog()
	}
	return d.Cat
}

func (d *Doc) Catalog() drawing.Catalog { return d.catalog() }

func (d *Doc) Engine() drawing.Engine {
	if d.Eng == nil {
		d.Eng = &Engine{}
	}
	return d.Eng
}

func (d *Doc) Close() error {
	d.mu.Lock()
	d.Closed++
	d.mu.Unlock()
	return nil
}

// Backend serves documents from a map keyed by path.
type Backend struct {
	Docs    map[string]*Doc
	OpenErr map[string]error
	Opened  []string
}

func (b *Backend) Open(ctx context.Context, path string) (drawing.Document, error) {
	b.Opened = append(b.Opened, path)
	if err := b.OpenErr[path]; err != nil {
		return nil, err
	}
	d, ok := b.Docs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return d, nil
}

// Catalog is a static device catalog.
type Catalog struct {
	DeviceMedia map[string][]drawing.Media
	Styles      []string
}

// Common media.
var (
	A4 = drawing.Media{Name: "ISO_A4_(210.00_x_297.00_MM)", Label: "ISO A4", Width: 210, Height: 297}
	A3 = drawing.Media{Name: "ISO_A3_(420.00_x_297.00_MM)", Label: "ISO A3", Width: 420, Height: 297}
	A1 = drawing.Media{Name: "ISO_A1_(841.00_x_594.00_MM)", Label: "ISO A1", Width: 841, Height: 594}
)

// DefaultCatalog has one device "PDF" with A4 portrait, A3 and A1 landscape.
func DefaultCatalog() *Catalog {
	return &Catalog{
		DeviceMedia: map[string][]drawing.Media{"PDF": {A4, A3, A1}},
		Styles:      []string{"monochrome.ctb"},
	}
}

func (c *Catalog) Devices(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(c.DeviceMedia))
	for d := range c.DeviceMedia {
		out = append(out, d)
	}
	slices.Sort(out)
	return out, nil
}

func (c *Catalog) Media(ctx context.Context, device string) ([]drawing.Media, error) {
	m, ok := c.DeviceMedia[device]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", device)
	}
	return m, nil
}

func (c *Catalog) StyleSheets(ctx context.Context) ([]string, error) { return c.Styles, nil }
