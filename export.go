package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/sheet"
	"github.com/hooper-lee/excant-backend/utils"
)

type exportRequest struct {
	FileName string              `json:"file_name"`
	Sheets   []sheet.ExportSheet `json:"sheets" binding:"required"`
}

// exportHandler turns the client's edited spreadsheet state into an xlsx
// download. Formulas are already evaluated client side, the payload carries
// display values.
func exportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := getSessionUser(c.Request.Context()); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req exportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingErrorResponse(c, err)
			return
		}
		if len(req.Sheets) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one sheet is required"})
			return
		}

		workbook, err := sheet.BuildWorkbook(req.Sheets)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var out bytes.Buffer
		if err := workbook.Write(&out); err != nil {
			config.LogError(config.GetLogger(), "export.go", "exportHandler", "write workbook", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build workbook"})
			return
		}

		name := strings.TrimSpace(req.FileName)
		if name == "" {
			name = "export_" + utils.GenerateUniqueFilename()
		}
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
			name += ".xlsx"
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Data(http.StatusOK, xlsxContentType, out.Bytes())
	}
}
