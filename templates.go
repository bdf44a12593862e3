package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/models"
	"github.com/hooper-lee/excant-backend/sheet"
	"github.com/hooper-lee/excant-backend/utils"
)

type templateCreateRequest struct {
	Name   string             `json:"name" binding:"required"`
	Prompt string             `json:"prompt"`
	Sheets []sheet.SheetShape `json:"sheets"`
}

func templateCreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req templateCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingErrorResponse(c, err)
			return
		}

		tpl := sheet.Template{
			Name:   req.Name,
			Prompt: req.Prompt,
			Sheets: req.Sheets,
		}
		record, err := models.CreateSheetTemplate(c.Request.Context(), user.ID, req.Name, tpl)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func templatesListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		records, err := models.GetUserSheetTemplates(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list templates"})
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func templateGetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
			return
		}

		record, err := models.GetSheetTemplate(c.Request.Context(), id, user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func templateDeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
			return
		}

		if err := models.DeleteSheetTemplate(c.Request.Context(), id, user.ID); err != nil {
			if err == utils.ErrorRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete template"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
