// Package merge concatenates plotted artifacts into one PDF and records the
// result as a merged artifact in the fingerprint store.
//
// Merged records carry only their input names. They are always reported
// stale, so a merged file is regenerated whenever it is requested again.
package merge

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
)

// Result describes a merged artifact.
type Result struct {
	Path   string
	Inputs []string
	Pages  int
}

// Merge writes the inputs, in order, to outName inside the store's
// directory. Inputs are artifact names relative to that directory.
func Merge(ctx context.Context, store *fingerprint.Store, outName string, inputs []string, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := perrors.ValidateArtifactName(outName); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nothing to merge")
	}

	dir := store.Dir()
	files := make([]string, len(inputs))
	for i, name := range inputs {
		if err := perrors.ValidateArtifactName(name); err != nil {
			return nil, err
		}
		if name == outName {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "%s cannot be merged into itself", name)
		}
		files[i] = filepath.Join(dir, name)
		if _, err := os.Stat(files[i]); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "artifact %s", name)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeCanceled, err, "merge canceled")
	}

	out := filepath.Join(dir, outName)
	if err := api.MergeCreateFile(files, out, false, nil); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodePlotFailed, err, "merge into %s", outName)
	}

	pages, err := PageCount(out)
	if err != nil {
		logger.Warn("count merged pages", "file", outName, "err", err)
	}
	if err := store.PutMerged(ctx, outName, inputs); err != nil {
		return nil, err
	}
	logger.Info("artifacts merged", "file", outName, "inputs", len(inputs), "pages", pages)
	return &Result{Path: out, Inputs: inputs, Pages: pages}, nil
}

// PageCount returns the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read %s", filepath.Base(path))
	}
	return n, nil
}
