package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type otpRequest struct {
	Action string `json:"action"`
	Email  string `json:"email"`
	Code   string `json:"code"`
}

func (h *handlers) otp(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	switch req.Action {
	case "send":
		res, err := h.deps.OTP.Send(c.Request.Context(), req.Email)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	case "verify":
		res, err := h.deps.OTP.Verify(c.Request.Context(), req.Email, req.Code)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	default:
		badRequest(c, "Invalid action")
	}
}
