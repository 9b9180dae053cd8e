package jsondoc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/fslock"
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Backend opens JSON drawing files.
type Backend struct {
	catalog *Catalog
	engine  *Engine
	logger  *log.Logger
}

// NewBackend creates a backend. A nil catalog means DefaultCatalog; a nil
// engine has no printer and fails every plot.
func NewBackend(catalog *Catalog, engine *Engine, logger *log.Logger) *Backend {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = log.Default()
	}
	if engine == nil {
		engine = NewEngine(nil, logger)
	}
	return &Backend{catalog: catalog, engine: engine, logger: logger}
}

// Open reads and parses the drawing at path. The file is not held open.
func (b *Backend) Open(ctx context.Context, path string) (drawing.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("drawing opened", "path", path, "layouts", len(f.Layouts), "active", f.ActiveLayout)
	return &Document{path: path, file: f, data: data, backend: b}, nil
}

// Document is an open JSON drawing.
type Document struct {
	path    string
	file    *File
	data    []byte
	backend *Backend

	mu   sync.Mutex
	lock *fslock.Lock
}

// File returns the parsed drawing.
func (d *Document) File() *File { return d.file }

func (d *Document) Path() string { return d.path }

// Lock takes an exclusive advisory lock on the drawing file.
func (d *Document) Lock(ctx context.Context) (func() error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lock != nil {
		return nil, fmt.Errorf("%s is already locked by this document", d.path)
	}
	l, err := fslock.TryLock(d.path)
	if err != nil {
		return nil, err
	}
	d.lock = l

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			err = d.lock.Unlock()
			d.lock = nil
		})
		return err
	}, nil
}

func (d *Document) Read(ctx context.Context, fn func(drawing.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx{d: d})
}

func (d *Document) CurrentView(ctx context.Context) (geom.View, error) {
	v, ok := d.file.GeomView()
	if !ok {
		return geom.View{}, errors.New("drawing has no saved view")
	}
	return v, nil
}

// Fingerprint returns the revision marker, or a content hash when the file
// carries none.
func (d *Document) Fingerprint(ctx context.Context) (string, error) {
	if d.file.Revision != "" {
		return d.file.Revision, nil
	}
	return fingerprint.Hash(d.data), nil
}

func (d *Document) Timestamp() (time.Time, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (d *Document) NewPlotSettings(layout string) (drawing.PlotSettings, error) {
	l := d.file.Layout(layout)
	if l == nil {
		return nil, fmt.Errorf("layout %q does not exist", layout)
	}
	return newSettings(d.backend.catalog, d, l), nil
}

func (d *Document) Catalog() drawing.Catalog { return d.backend.catalog }

func (d *Document) Engine() drawing.Engine { return d.backend.engine }

// Close releases a lock that is still held.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lock == nil {
		return nil
	}
	err := d.lock.Unlock()
	d.lock = nil
	return err
}

type tx struct{ d *Document }

func (t tx) ActiveSpace() (drawing.Space, error) {
	l := t.d.file.Layout(t.d.file.ActiveLayout)
	if l == nil {
		return nil, fmt.Errorf("active layout %q does not exist", t.d.file.ActiveLayout)
	}
	return space{l: l}, nil
}

type space struct{ l *Layout }

func (s space) Name() string  { return s.l.Name }
func (s space) IsModel() bool { return s.l.Model }

func (s space) BlockRefs() ([]drawing.BlockRef, error) {
	var out []drawing.BlockRef
	for _, e := range s.l.Entities {
		if e.Type == TypeInsert {
			out = append(out, blockRef{e: e})
		}
	}
	return out, nil
}

type blockRef struct{ e Entity }

func (b blockRef) Handle() string                 { return b.e.Handle }
func (b blockRef) EffectiveName() (string, error) { return b.e.BlockName() }
func (b blockRef) Extents() (geom.Extents, error) { return b.e.Extents() }

var (
	_ drawing.Backend  = (*Backend)(nil)
	_ drawing.Document = (*Document)(nil)
	_ drawing.BlockRef = blockRef{}
)
