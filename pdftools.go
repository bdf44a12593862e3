package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/pagerange"
	"github.com/hooper-lee/excant-backend/pdfops"
)

// readPdfUpload validates the multipart upload shared by the page tools and
// returns the file bytes plus the parsed page selection.
func readPdfUpload(c *gin.Context) (string, []byte, []int, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, nil, false
	}
	if fileHeader.Size > maxUploadSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
		return "", nil, nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return "", nil, nil, false
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return "", nil, nil, false
	}

	if http.DetectContentType(data) != "application/pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a pdf file is required"})
		return "", nil, nil, false
	}

	total, err := pdfops.PageCount(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read pdf"})
		return "", nil, nil, false
	}

	pages := pagerange.Parse(c.PostForm("pages"), total)
	if len(pages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid pages selected"})
		return "", nil, nil, false
	}

	return fileHeader.Filename, data, pages, true
}

func pdfDownloadName(original, suffix string) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if base == "" {
		base = "document"
	}
	return base + "-" + suffix + ".pdf"
}

func pdfExtractPagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := getSessionUser(c.Request.Context()); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		name, data, pages, ok := readPdfUpload(c)
		if !ok {
			return
		}

		out, err := pdfops.ExtractPages(bytes.NewReader(data), pages)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not extract pages"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfDownloadName(name, "pages")))
		c.Data(http.StatusOK, "application/pdf", out)
	}
}

func pdfRemovePagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := getSessionUser(c.Request.Context()); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		name, data, pages, ok := readPdfUpload(c)
		if !ok {
			return
		}

		total, err := pdfops.PageCount(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read pdf"})
			return
		}
		if err := pagerange.ValidateDeletion(pages, total); err != nil {
			if errors.Is(err, pagerange.ErrDeletesAllPages) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove every page"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		out, err := pdfops.RemovePages(bytes.NewReader(data), pages)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove pages"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfDownloadName(name, "trimmed")))
		c.Data(http.StatusOK, "application/pdf", out)
	}
}
