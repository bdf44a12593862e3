package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/models"
	"github.com/hooper-lee/excant-backend/utils"
)

// authorizeAdminOnly resolves the session user and requires the admin role.
// The check runs against the database row, not anything client supplied; the
// row is cached in redis for the token lifespan and dropped on admin updates.
func authorizeAdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := utils.GetUserEmailFromContext(c.Request.Context())
		if !ok || email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		var user models.User
		exists, err := config.GetRedisObject("User:"+email, &user)
		if err != nil || !exists {
			loaded, err := getSessionUser(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			user = *loaded
			user.Password = ""

			tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
			if err != nil {
				tokenLifespan = 1
			}
			if err := config.SetRedisObject("User:"+email, &user, time.Duration(tokenLifespan)*time.Hour); err != nil {
				config.LogError(config.GetLogger(), "admin.go", "authorizeAdminOnly", "cache user", email, err)
			}
		}

		if user.Role != models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(utils.SetIsAdminInContext(c.Request.Context(), true))
		c.Next()
	}
}

func adminListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list users"})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func adminGetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		user, err := models.GetUserByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func adminUpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var input models.AdminUserUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			bindingErrorResponse(c, err)
			return
		}

		user, err := models.AdminUpdateUser(c.Request.Context(), id, &input)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
