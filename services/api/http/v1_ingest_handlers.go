package http

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/ingest"
)

// handleV1ListLocal returns the supported files of the input directory
// GET /api/v1/ingest/local
func (s *Server) handleV1ListLocal(c *gin.Context) {
	files, err := s.session.Local.List()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": files,
		"meta": gin.H{
			"dir":   s.session.Local.Dir(),
			"count": len(files),
		},
	})
}

type loadLocalBody struct {
	Name string `json:"name" binding:"required"`
}

// handleV1LoadLocal loads one file of the input directory
// POST /api/v1/ingest/local {"name": "a.csv"}
func (s *Server) handleV1LoadLocal(c *gin.Context) {
	var body loadLocalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	e, err := s.session.Local.Load(c.Request.Context(), body.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": viewOf(e),
	})
}

// handleV1ListSlots re-checks the trailing empty slot and returns every URL
// slot
// GET /api/v1/ingest/urls
func (s *Server) handleV1ListSlots(c *gin.Context) {
	if s.session.URLs.EnsureTrailingSlot() {
		s.log.Debug("trailing url slot appended")
	}
	slots := s.session.URLs.Slots()
	c.JSON(http.StatusOK, gin.H{
		"data": slots,
		"meta": gin.H{
			"count": len(slots),
		},
	})
}

func slotIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("slot"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot must be a non-negative integer"})
		return 0, false
	}
	return idx, true
}

type setURLBody struct {
	URL string `json:"url" binding:"required"`
}

// handleV1SetSlotURL assigns a URL to an empty slot
// PUT /api/v1/ingest/urls/:slot {"url": "https://host/x.csv"}
func (s *Server) handleV1SetSlotURL(c *gin.Context) {
	idx, ok := slotIndex(c)
	if !ok {
		return
	}
	var body setURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	e, err := s.session.URLs.SetURL(idx, body.URL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": viewOf(e),
	})
}

// handleV1DownloadSlot starts the download of a Pending slot. By default the
// fetch runs in the background and progress is read from the slot list;
// ?wait=true blocks until the entry is terminal.
// POST /api/v1/ingest/urls/:slot/download
func (s *Server) handleV1DownloadSlot(c *gin.Context) {
	idx, ok := slotIndex(c)
	if !ok {
		return
	}
	if err := s.checkDownloadable(idx); err != nil {
		writeError(c, err)
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		e, err := s.session.URLs.Download(c.Request.Context(), idx)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": viewOf(e)})
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.session.URLs.Download(s.baseCtx, idx); err != nil {
			s.log.Warn("background download", "slot", idx, "err", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"slot": idx, "status": "started"},
	})
}

func (s *Server) checkDownloadable(idx int) error {
	slots := s.session.URLs.Slots()
	if idx >= len(slots) {
		return errs.Configurationf("download", "", "%w: %d", ingest.ErrSlotNotFound, idx)
	}
	sv := slots[idx]
	if sv.URL == "" {
		return errs.Configurationf("download", "", "%w: %d", ingest.ErrEmptySlot, idx)
	}
	if sv.State != nil && sv.State.Phase != dataset.PhasePending {
		return errs.Configurationf("download", sv.Entry, "%w: entry is %s", errs.ErrInvalidTransition, sv.State.Phase)
	}
	return nil
}

// handleV1ListUploads returns the retained upload blobs
// GET /api/v1/ingest/uploads
func (s *Server) handleV1ListUploads(c *gin.Context) {
	infos, err := s.session.Uploads.Blobs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": infos,
		"meta": gin.H{
			"count": len(infos),
		},
	})
}

type uploadResult struct {
	Filename string       `json:"filename"`
	Created  bool         `json:"created"`
	Entry    *datasetView `json:"entry,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// handleV1Upload ingests one or more files from the multipart field "files".
// Each file gets its own result; one bad file does not fail the batch.
// POST /api/v1/ingest/uploads
func (s *Server) handleV1Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in field \"files\""})
		return
	}

	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		res := uploadResult{Filename: fh.Filename}
		data, err := readPart(fh)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		e, created, err := s.session.Uploads.Upload(c.Request.Context(), fh.Filename, data)
		if err != nil {
			res.Error = err.Error()
		} else {
			v := viewOf(e)
			res.Entry = &v
			res.Created = created
		}
		results = append(results, res)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": results,
		"meta": gin.H{
			"count": len(results),
		},
	})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleV1Query materialises a database query as a table entry
// POST /api/v1/ingest/query {"name": "...", "source": "postgres|sqlite", "sql": "..."}
func (s *Server) handleV1Query(c *gin.Context) {
	var req ingest.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	e, err := s.session.Queries.Query(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": viewOf(e),
	})
}
