package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/speedsheet/artifact"
)

// Download returns a handler for GET /api/download/:fileName.
//
// Serves the stored artifact as an attachment. Unknown names, and names
// that would point outside the artifact directory, yield 404.
func Download(store *artifact.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileName := c.Param("fileName")

		f, fi, err := store.Open(fileName)
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		c.Header("Content-Type", contentTypeFor(fileName))
		http.ServeContent(c.Writer, c.Request, fileName, fi.ModTime(), f)
	}
}

// contentTypeFor maps artifact extensions to media types. The workbook type
// covers artifacts written into the store by external composers.
func contentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".zip":
		return "application/zip"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
