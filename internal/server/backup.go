package server

import (
	"net/http"

	"go-maintdash/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleBackupExport(c *gin.Context) {
	data, err := s.store.ExportData(c.Request.Context())
	if err != nil {
		InternalError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleBackupImport(c *gin.Context) {
	var data models.Backup
	if !bindJSON(c, &data) {
		return
	}
	for _, st := range data.Sites {
		if !st.Kind.Valid() {
			BadRequest(c, "backup contains a site with an unknown kind")
			return
		}
	}
	if err := s.store.ImportData(c.Request.Context(), data); err != nil {
		InternalError(c, s.logger, err)
		return
	}
	s.logger.Info("backup imported",
		zap.Int("sites", len(data.Sites)), zap.Int("alerts", len(data.Alerts)), zap.Int("users", len(data.Users)))
	OK(c, gin.H{"message": "Import Successful"})
}
