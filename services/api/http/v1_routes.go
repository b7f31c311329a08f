package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/datasets, /api/v1/ingest, /api/v1/compose
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Registry entries and their display config
	datasets := v1.Group("/datasets")
	{
		datasets.GET("", s.handleV1ListDatasets)
		datasets.DELETE("", s.handleV1ClearDatasets)
		datasets.GET("/:name", s.handleV1GetDataset)
		datasets.PATCH("/:name", s.handleV1ConfigureDataset)
		datasets.DELETE("/:name", s.handleV1RemoveDataset)
	}

	// Acquisition channels
	ingest := v1.Group("/ingest")
	{
		ingest.GET("/local", s.handleV1ListLocal)
		ingest.POST("/local", s.handleV1LoadLocal)
		ingest.GET("/urls", s.handleV1ListSlots)
		ingest.PUT("/urls/:slot", s.handleV1SetSlotURL)
		ingest.POST("/urls/:slot/download", s.handleV1DownloadSlot)
		ingest.GET("/uploads", s.handleV1ListUploads)
		ingest.POST("/uploads", s.handleV1Upload)
		ingest.POST("/query", s.handleV1Query)
	}

	// Render descriptions built from a registry snapshot
	compose := v1.Group("/compose")
	{
		compose.GET("/layers", s.handleV1ComposeLayers)
		compose.GET("/chart", s.handleV1ComposeChart)
		compose.GET("/colormaps", s.handleV1Colormaps)
	}
}
