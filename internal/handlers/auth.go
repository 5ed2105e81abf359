package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/identity"
	"github.com/incidentdesk/incidentdesk/internal/types"
	"github.com/incidentdesk/incidentdesk/internal/utils"
)

type AuthHandler struct {
	verifier identity.Verifier
	tokens   *auth.TokenManager
}

func NewAuthHandler(verifier identity.Verifier, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{verifier: verifier, tokens: tokens}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))

	user, err := h.verifier.Verify(req.Username, req.Password)

	if err != nil {
		respondError(ctx, err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Role)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": types.UserResponse{
			ID:         user.ID,
			Username:   user.Username,
			Role:       user.Role,
			Department: user.Department,
			IsActive:   user.IsActive,
		},
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:         currentUser.ID,
			Username:   currentUser.Username,
			Role:       currentUser.Role,
			Department: currentUser.Department,
			IsActive:   currentUser.IsActive,
		},
	})
}
