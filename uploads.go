package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/extract"
	"github.com/hooper-lee/excant-backend/models"
	"github.com/hooper-lee/excant-backend/pdfops"
	"github.com/hooper-lee/excant-backend/sheet"
	"github.com/hooper-lee/excant-backend/utils"
)

const maxUploadSizeBytes int64 = 20 * 1024 * 1024

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var uploadMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// uploadAndExtractHandler is the main ingestion flow: take the file, count
// its pages, reserve quota, send it to the extraction service, persist the
// document and stream back a generated workbook.
func uploadAndExtractHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}
		prompt := strings.TrimSpace(c.PostForm("prompt"))

		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}

		contentType := http.DetectContentType(data)
		if !uploadMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type: " + contentType})
			return
		}

		pageCount := 1
		if contentType == "application/pdf" {
			pageCount, err = pdfops.PageCount(bytes.NewReader(data))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read pdf"})
				return
			}
		}

		// Serialize quota checks per user so concurrent uploads cannot both
		// pass the limit. The DB update re-asserts the invariant on commit.
		if locker := config.GetRedisLock(); locker != nil {
			lock, lockErr := locker.Obtain(c.Request.Context(), fmt.Sprintf("quota:%d", user.ID), 30*time.Second, nil)
			if lockErr == nil {
				defer lock.Release(c.Request.Context())
			} else if lockErr != redislock.ErrNotObtained {
				logger.WithFields(logrus.Fields{
					"field":   "uploadAndExtractHandler",
					"user_id": user.ID,
				}).Warn("error obtaining quota lock; proceeding: " + lockErr.Error())
			}
		}

		if err := models.CheckQuota(user.PagesUsed, user.PagesLimit, pageCount); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		client, err := extract.NewClient()
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "extraction client", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction service unavailable"})
			return
		}

		doc := &models.Document{
			UserId:       user.ID,
			OriginalName: fileHeader.Filename,
			ContentType:  contentType,
			PageCount:    pageCount,
			Status:       models.DocumentStatusCompleted,
		}

		extracted, err := client.Extract(c.Request.Context(), fileHeader.Filename, contentType, data, prompt)
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "extract", user.ID, err)
			if dbErr := models.MarkDocumentFailed(c.Request.Context(), doc, err); dbErr != nil {
				config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "record failed document", user.ID, dbErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction failed"})
			return
		}
		doc.ExtractedData = extracted

		// Load the raw extraction into the spreadsheet model before
		// persisting, so a malformed payload fails the request early.
		model := sheet.NewDocument()
		model.Prompt = prompt
		if err := model.LoadFromExtraction(extracted); err != nil {
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "load extraction", user.ID, err)
			if dbErr := models.MarkDocumentFailed(c.Request.Context(), doc, err); dbErr != nil {
				config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "record failed document", user.ID, dbErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction returned an unusable result"})
			return
		}

		if _, err := models.CreateDocument(c.Request.Context(), doc); err != nil {
			if err == models.ErrQuotaExceeded {
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
				return
			}
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "persist document", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save document"})
			return
		}

		// Archive the original in cloud storage, best effort. The object key
		// is recorded only when the upload succeeds.
		if utils.GetStorageProvider() == utils.StorageProviderGCS {
			objectKey := fmt.Sprintf("%d/%s%s", user.ID, doc.ID, filepath.Ext(fileHeader.Filename))
			if err := utils.UploadBytesToGCS(c.Request.Context(), objectKey, data, contentType); err != nil {
				logger.WithFields(logrus.Fields{
					"field":       "uploadAndExtractHandler",
					"user_id":     user.ID,
					"document_id": doc.ID,
				}).Warn("archive upload failed: " + err.Error())
			} else {
				db := config.GetDB()
				if err := db.WithContext(c.Request.Context()).Model(&models.Document{}).
					Where("id = ?", doc.ID).Update("object_key", objectKey).Error; err != nil {
					config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "record object key", doc.ID, err)
				}
			}
		}

		workbook, err := sheet.BuildWorkbook(model.ExportSheets())
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "build workbook", doc.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build workbook"})
			return
		}

		var out bytes.Buffer
		if err := workbook.Write(&out); err != nil {
			config.LogError(logger, "uploads.go", "uploadAndExtractHandler", "write workbook", doc.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build workbook"})
			return
		}

		base := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
		c.Header("X-Document-Id", doc.ID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".xlsx"))
		c.Data(http.StatusOK, xlsxContentType, out.Bytes())
	}
}

func documentsListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		docs, err := models.GetUserDocuments(c.Request.Context(), user.ID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list documents"})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

func documentGetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		doc, err := models.GetDocument(c.Request.Context(), c.Param("id"), user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}
