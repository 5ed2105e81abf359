package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

func TestMeReportsStoredActivationFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewAuthHandler(nil, nil)

	for _, active := range []bool{true, false} {
		t.Run(fmt.Sprintf("active=%v", active), func(t *testing.T) {
			rr := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(rr)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			ctx.Set(types.ContextUserKey, middleware.AuthenticatedUser{
				ID:       7,
				Username: "alice",
				Role:     types.RoleUser,
				IsActive: active,
			})

			h.Me(ctx)

			if rr.Code != http.StatusOK {
				t.Fatalf("me = %d, want 200", rr.Code)
			}

			var body struct {
				User types.UserResponse `json:"user"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if body.User.IsActive != active {
				t.Fatalf("is_active = %v, want %v", body.User.IsActive, active)
			}
		})
	}
}
