package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/egi-ims/messages-backend/internal/apperrors"
	mw "github.com/egi-ims/messages-backend/internal/middleware"
	"github.com/egi-ims/messages-backend/internal/models"
	"github.com/egi-ims/messages-backend/internal/services"
)

// UserHandler handles user and role HTTP requests
type UserHandler struct {
	directory services.Directory
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(directory services.Directory) *UserHandler {
	return &UserHandler{directory: directory}
}

// RegisterUserRoutes registers user and role routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/user/info", h.GetUserInfo)
	g.GET("/role/:role/users", h.ListRoleUsers)
}

// GetUserInfo returns the profile of the authenticated caller
func (h *UserHandler) GetUserInfo(c echo.Context) error {
	identity := mw.GetIdentity(c)
	if identity == nil || identity.CheckinUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	return c.JSON(http.StatusOK, models.UserInfo{
		Kind:           "UserInfo",
		CheckinUserID:  identity.CheckinUserID,
		UserName:       identity.UserName,
		FirstName:      identity.FirstName,
		LastName:       identity.LastName,
		FullName:       identity.FullName,
		Email:          identity.Email,
		EmailVerified:  identity.EmailVerified,
		AssuranceLevel: identity.AssuranceLevel,
	})
}

// ListRoleUsers returns the users holding a role within an IMS process
func (h *UserHandler) ListRoleUsers(c echo.Context) error {
	role := c.Param("role")
	process := c.QueryParam("process")
	if process == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing parameter process")
	}

	users, err := h.directory.ListUsersWithGroupRole(c.Request().Context(), process, role)
	if err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	info := models.RoleInfo{Kind: "RoleInfo", Role: role, Process: process}
	for _, user := range users {
		info.Users = append(info.Users, models.User{
			CheckinUserID: user.CheckinUserID,
			FullName:      user.GetFullName(),
			Email:         user.Email,
		})
	}

	return c.JSON(http.StatusOK, info)
}
