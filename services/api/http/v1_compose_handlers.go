package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/chart"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/classify"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/metrics"
)

// handleV1ComposeLayers builds the map layers and viewport for the visible
// entries of the current registry snapshot
// GET /api/v1/compose/layers
func (s *Server) handleV1ComposeLayers(c *gin.Context) {
	start := time.Now()
	res := s.layers.Compose(s.session.Registry.Snapshot())
	observe("layers", start, res.Diagnostics)

	c.JSON(http.StatusOK, gin.H{
		"data": res,
		"meta": gin.H{
			"layers":      len(res.Layers),
			"diagnostics": len(res.Diagnostics),
		},
	})
}

// handleV1ComposeChart builds charts for one entry
// GET /api/v1/compose/chart?entry=a.csv&kind=distribution&x=col&y=col
func (s *Server) handleV1ComposeChart(c *gin.Context) {
	var req chart.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	if req.Kind != "" && !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be correlation, distribution or proportion"})
		return
	}

	start := time.Now()
	res := s.charts.Compose(s.session.Registry.Snapshot(), req)
	observe("chart", start, res.Diagnostics)

	c.JSON(http.StatusOK, gin.H{
		"data": res,
		"meta": gin.H{
			"charts": len(res.Charts),
			"empty":  res.Empty(),
		},
	})
}

// handleV1Colormaps lists the colormap names accepted in a dataset config
// GET /api/v1/compose/colormaps
func (s *Server) handleV1Colormaps(c *gin.Context) {
	names := classify.Names()
	c.JSON(http.StatusOK, gin.H{
		"data": names,
		"meta": gin.H{
			"count":    len(names),
			"reversed": "append _r to any name",
		},
	})
}

func observe(composer string, start time.Time, diags []dataset.Diagnostic) {
	metrics.ComposeDurationMs.WithLabelValues(composer).Observe(float64(time.Since(start).Microseconds()) / 1000)
	for _, d := range diags {
		metrics.DiagnosticsTotal.WithLabelValues(composer, string(d.Level)).Inc()
	}
}
