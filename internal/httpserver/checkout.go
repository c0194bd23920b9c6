package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurum-storefront/internal/domain"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	"aurum-storefront/internal/shopify"
)

type checkoutRequest struct {
	Customer checkoutsvc.Contact `json:"customer"`
	Cart     struct {
		Items    []domain.LineItem `json:"items"`
		Subtotal float64           `json:"subtotal"`
		Tax      float64           `json:"tax"`
	} `json:"cart"`
	PaymentMethod string `json:"paymentMethod"`
}

// checkout places an order for guests and signed-in customers alike.
func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	var id string
	if claims, ok := sessionClaims(c); ok {
		id = claims.CustomerID
	}

	order, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), id, checkoutsvc.Input{
		Customer:      req.Customer,
		Items:         req.Cart.Items,
		Subtotal:      req.Cart.Subtotal,
		Tax:           req.Cart.Tax,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var ue *shopify.UserError
		if errors.As(err, &ue) {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order creation failed", "details": ue.Errors})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}
