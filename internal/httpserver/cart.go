package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurum-storefront/internal/domain"
	cartsvc "aurum-storefront/internal/service/cart"
)

type cartResponse struct {
	Success bool              `json:"success"`
	Cart    []domain.LineItem `json:"cart"`
	Version int64             `json:"version"`
}

type saveCartRequest struct {
	Cart    []domain.LineItem `json:"cart"`
	Version *int64            `json:"version"`
}

func (h *handlers) getCart(c *gin.Context) {
	remote, err := h.deps.Carts.Get(c.Request.Context(), customerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Success: true, Cart: domain.CloneItems(remote.Items), Version: remote.Version})
}

// saveCart stores the whole cart. A stale version yields 409 with the stored cart.
func (h *handlers) saveCart(c *gin.Context) {
	var req saveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	saved, err := h.deps.Carts.Save(c.Request.Context(), customerID(c), req.Cart, req.Version)
	if err != nil {
		var conflict *cartsvc.ConflictError
		if errors.As(err, &conflict) {
			_ = c.Error(err)
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Cart version conflict",
				"version": conflict.Current.Version,
				"cart":    domain.CloneItems(conflict.Current.Items),
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Success: true, Cart: domain.CloneItems(saved.Items), Version: saved.Version})
}
