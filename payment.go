package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/models"
)

type paymentRequest struct {
	PlanId string             `json:"plan_id" binding:"required"`
	Card   models.CardDetails `json:"card" binding:"required"`
}

func paymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingErrorResponse(c, err)
			return
		}

		order, updated, err := models.ProcessPayment(c.Request.Context(), user.ID, req.PlanId, &req.Card)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrUnknownPlan),
				errors.Is(err, models.ErrFreePlanNotPaid),
				errors.Is(err, models.ErrInvalidCard),
				errors.Is(err, models.ErrCardExpired):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, models.ErrCardDeclined):
				c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
			case errors.Is(err, models.ErrPaymentFailed):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be processed"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"order_id": order.ID,
			"user": gin.H{
				"plan":        updated.Plan,
				"pages_limit": updated.PagesLimit,
				"pages_used":  updated.PagesUsed,
			},
		})
	}
}

func ordersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orders, err := models.GetUserOrders(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func subscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubscription(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no subscription"})
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}
