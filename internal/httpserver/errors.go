package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurum-storefront/internal/domain"
	cartsvc "aurum-storefront/internal/service/cart"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	customersvc "aurum-storefront/internal/service/customer"
	otpsvc "aurum-storefront/internal/service/otp"
	"aurum-storefront/internal/shopify"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// Known errors and the status and message clients see for them. Order matters:
// specific sentinels come before the domain categories they wrap.
var errorMappings = []errorMapping{
	{otpsvc.ErrEmailRequired, http.StatusBadRequest, "Email required"},
	{otpsvc.ErrEmailAndCodeRequired, http.StatusBadRequest, "Email and Code required"},
	{otpsvc.ErrInvalidCode, http.StatusUnauthorized, "Invalid or expired OTP"},
	{otpsvc.ErrCustomerNotFound, http.StatusBadRequest, "Customer not found"},
	{otpsvc.ErrCustomerUnresolved, http.StatusInternalServerError, "Failed to resolve customer ID"},
	{customersvc.ErrPhoneTaken, http.StatusBadRequest, "This phone number is already registered to another account."},
	{customersvc.ErrContactTaken, http.StatusBadRequest, "This phone number or email is already registered to another account."},
	{customersvc.ErrAddressIDRequired, http.StatusBadRequest, "Address ID required"},
	{shopify.ErrDefaultAddress, http.StatusInternalServerError, "Failed to set default address (Shopify Error)."},
	{checkoutsvc.ErrEmailRequired, http.StatusBadRequest, "Email required"},
	{checkoutsvc.ErrEmptyCart, http.StatusBadRequest, "Cart is empty"},
	{cartsvc.ErrInvalidItem, http.StatusBadRequest, "Invalid cart item"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{domain.ErrNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrConflict, http.StatusConflict, "Conflict"},
}

// writeError maps err to a status and {error} body. Unknown errors are
// passed through with status 500.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
