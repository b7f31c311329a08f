package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/classify"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// datasetView is the wire shape of a registry entry.
type datasetView struct {
	dataset.Entry
	Kind     string   `json:"kind,omitempty"`
	Size     int      `json:"size,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

func viewOf(e dataset.Entry) datasetView {
	v := datasetView{Entry: e}
	if p, ok := e.State.Progress(); ok {
		v.Progress = &p
	}
	if e.Payload != nil {
		v.Kind = e.Payload.Kind.String()
		v.Size = e.Payload.Size()
		if view, ok := e.Payload.View(); ok {
			v.Columns = view.Keys()
		}
	}
	return v
}

// handleV1ListDatasets returns all entries in creation order
// GET /api/v1/datasets
func (s *Server) handleV1ListDatasets(c *gin.Context) {
	snap := s.session.Registry.Snapshot()
	out := make([]datasetView, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		out = append(out, viewOf(e))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{
			"count": len(out),
		},
	})
}

// handleV1GetDataset returns one entry
// GET /api/v1/datasets/:name
func (s *Server) handleV1GetDataset(c *gin.Context) {
	name := c.Param("name")
	e, ok := s.session.Registry.Get(name)
	if !ok {
		writeError(c, errs.Configuration("get", name, errs.ErrNotFound))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": viewOf(e),
	})
}

// configPatch carries the display settings a client may change. Absent
// fields are left untouched.
type configPatch struct {
	Visible              *bool                    `json:"visible"`
	Position             *dataset.PositionColumns `json:"position_columns"`
	ClassificationColumn *string                  `json:"classification_column"`
	ColorMode            *dataset.ColorMode       `json:"color_mode"`
	Solid                *dataset.RGBA            `json:"solid"`
	Colormap             *string                  `json:"colormap"`
	PointRadius          *float64                 `json:"point_radius"`
}

func (p configPatch) validate(name string) error {
	if p.Colormap != nil {
		if _, err := classify.Lookup(*p.Colormap); err != nil {
			return err
		}
	}
	if p.PointRadius != nil && *p.PointRadius <= 0 {
		return errs.Configurationf("configure", name, "point_radius must be positive")
	}
	if p.Position != nil && (strings.TrimSpace(p.Position.Lat) == "" || strings.TrimSpace(p.Position.Lon) == "") {
		return errs.Configurationf("configure", name, "position_columns needs lat and lon")
	}
	return nil
}

func (p configPatch) apply(cfg *dataset.Config) {
	if p.Visible != nil {
		cfg.Visible = *p.Visible
	}
	if p.Position != nil {
		pos := *p.Position
		cfg.Position = &pos
	}
	if p.ClassificationColumn != nil {
		col := strings.TrimSpace(*p.ClassificationColumn)
		if col == "" || strings.EqualFold(col, "none") {
			cfg.ClassificationColumn = nil
		} else {
			cfg.ClassificationColumn = &col
		}
	}
	if p.ColorMode != nil {
		cfg.Color.Mode = *p.ColorMode
	}
	if p.Solid != nil {
		cfg.Color.Solid = *p.Solid
	}
	if p.Colormap != nil {
		cfg.Color.Colormap = strings.ToLower(strings.TrimSpace(*p.Colormap))
	}
	if p.PointRadius != nil {
		cfg.PointRadius = *p.PointRadius
	}
}

// handleV1ConfigureDataset updates an entry's display config
// PATCH /api/v1/datasets/:name
func (s *Server) handleV1ConfigureDataset(c *gin.Context) {
	name := c.Param("name")
	var patch configPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := patch.validate(name); err != nil {
		writeError(c, err)
		return
	}

	e, err := s.session.Configure(name, patch.apply)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": viewOf(e),
	})
}

// handleV1RemoveDataset removes one entry
// DELETE /api/v1/datasets/:name
func (s *Server) handleV1RemoveDataset(c *gin.Context) {
	if err := s.session.Remove(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleV1ClearDatasets tears the session down
// DELETE /api/v1/datasets
func (s *Server) handleV1ClearDatasets(c *gin.Context) {
	s.session.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}
