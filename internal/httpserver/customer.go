package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurum-storefront/internal/domain"
	customersvc "aurum-storefront/internal/service/customer"
)

type defaultAddressRequest struct {
	AddressID string `json:"addressId"`
}

func (h *handlers) getMe(c *gin.Context) {
	profile, err := h.deps.Customers.Profile(c.Request.Context(), customerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *handlers) updateMe(c *gin.Context) {
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	updated, err := h.deps.Customers.UpdateProfile(c.Request.Context(), customerID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customer": updated})
}

func (h *handlers) createAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	created, err := h.deps.Customers.AddAddress(c.Request.Context(), customerID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "address": created})
}

func (h *handlers) updateAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	updated, err := h.deps.Customers.UpdateAddress(c.Request.Context(), customerID(c), req)
	if err != nil {
		addressError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "address": updated})
}

func (h *handlers) deleteAddress(c *gin.Context) {
	err := h.deps.Customers.DeleteAddress(c.Request.Context(), customerID(c), c.Query("id"))
	if err != nil {
		addressError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) setDefaultAddress(c *gin.Context) {
	var req defaultAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	err := h.deps.Customers.SetDefaultAddress(c.Request.Context(), customerID(c), req.AddressID)
	if err != nil {
		if errors.Is(err, customersvc.ErrAddressIDRequired) {
			badRequest(c, "Address ID is required")
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func addressError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		return
	}
	writeError(c, err)
}
