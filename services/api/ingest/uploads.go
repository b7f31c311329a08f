package ingest

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/blob"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/parse"
)

const uploadPrefix = "uploads/"

var contentTypes = map[parse.Format]string{
	parse.FormatCSV:     "text/csv",
	parse.FormatGeoJSON: "application/geo+json",
	parse.FormatGeoTIFF: "image/tiff",
}

// UploadChannel ingests interactively uploaded files, keyed by filename.
type UploadChannel struct {
	*loader
	blobs blob.Store
	mu    sync.Mutex
}

// Upload stores and parses one file. Re-uploading a filename already held by
// this channel returns the existing entry unchanged.
func (c *UploadChannel) Upload(ctx context.Context, filename string, data []byte) (dataset.Entry, bool, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return dataset.Entry{}, false, errs.Configurationf("upload", filename, "%w: empty filename", ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.reg.Get(name); ok && e.Source == dataset.SourceUploadedBlob {
		return e, false, nil
	}
	if _, err := c.reg.Create(dataset.SourceUploadedBlob, name, uploadPrefix+name, dataset.DefaultConfig()); err != nil {
		return dataset.Entry{}, false, err
	}

	key := uploadPrefix + name
	if _, err := c.blobs.Put(ctx, key, bytes.NewReader(data), contentTypes[parse.Detect(name)]); err != nil {
		if !errors.Is(err, blob.ErrExists) {
			e, ferr := c.finish(dataset.SourceUploadedBlob, name, nil, errs.Acquisition("store upload", name, err))
			return e, true, ferr
		}
	}
	e, err := c.load(dataset.SourceUploadedBlob, name, data)
	return e, true, err
}

// Blobs lists the retained uploads.
func (c *UploadChannel) Blobs(ctx context.Context) ([]blob.Info, error) {
	return c.blobs.List(ctx, uploadPrefix)
}

func (c *UploadChannel) forget(ctx context.Context, name string) {
	if _, err := c.blobs.Delete(ctx, uploadPrefix+name); err != nil {
		c.log.Warn("drop upload blob", "entry", name, "err", err)
	}
}
