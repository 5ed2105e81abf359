package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/incidentdesk/incidentdesk/internal/models"
	"github.com/incidentdesk/incidentdesk/internal/types"
	"github.com/incidentdesk/incidentdesk/internal/users"
	"github.com/incidentdesk/incidentdesk/internal/utils"
)

type UserHandler struct {
	users *users.Service
}

func NewUserHandler(service *users.Service) *UserHandler {
	return &UserHandler{users: service}
}

type CreateUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
}

type UpdateUserRequest struct {
	Username    string  `json:"username"`
	Department  *string `json:"department"`
	Role        string  `json:"role"`
	IsActive    *bool   `json:"is_active"`
	NewPassword string  `json:"new_password" binding:"omitempty,min=8"`
}

func (h *UserHandler) CreateUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.users.Create(ctx.Request.Context(), currentUser.Principal(), users.CreateInput{
		Username:   req.Username,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

func (h *UserHandler) ListUsers(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	list, err := h.users.List(ctx.Request.Context(), currentUser.Principal())

	if err != nil {
		respondError(ctx, err)
		return
	}

	responses := make([]types.UserResponse, 0, len(list))

	for i := range list {
		responses = append(responses, userResponse(&list[i]))
	}

	ctx.JSON(http.StatusOK, responses)
}

func (h *UserHandler) GetUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.users.Get(ctx.Request.Context(), currentUser.Principal(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

func (h *UserHandler) UpdateUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.users.Update(ctx.Request.Context(), currentUser.Principal(), userID, users.UpdateInput{
		Username:    req.Username,
		Department:  req.Department,
		Role:        req.Role,
		IsActive:    req.IsActive,
		NewPassword: req.NewPassword,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    userResponse(user),
	})
}

func (h *UserHandler) DeleteUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), currentUser.Principal(), userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func userResponse(user *models.User) types.UserResponse {
	return types.UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		Department: user.Department,
		IsActive:   user.IsActive,
	}
}
