package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
)

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(apperrors.StatusFor(err), gin.H{"error": apperrors.Message(err)})
}
