package ingest

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/parse"
)

// LocalChannel loads files from the input directory.
type LocalChannel struct {
	dir string
	*loader
}

// Dir returns the input directory.
func (c *LocalChannel) Dir() string { return c.dir }

// List returns the supported files of the input directory, sorted.
func (c *LocalChannel) List() ([]string, error) {
	ents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errs.Acquisition("list input", c.dir, err)
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if parse.Supported(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load reads name synchronously: Pending then Loaded or Failed. A read or
// parse failure is recorded on the entry, not returned.
func (c *LocalChannel) Load(_ context.Context, name string) (dataset.Entry, error) {
	path, err := resolvePath(c.dir, name)
	if err != nil {
		return dataset.Entry{}, errs.Configuration("load local", name, err)
	}
	if _, err := c.reg.Create(dataset.SourceLocalPath, name, path, dataset.DefaultConfig()); err != nil {
		return dataset.Entry{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c.finish(dataset.SourceLocalPath, name, nil, errs.Acquisition("read", name, err))
	}
	return c.load(dataset.SourceLocalPath, name, data)
}
