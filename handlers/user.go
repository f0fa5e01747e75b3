package handlers

import (
	"fmt"
	"net/http"

	"case_relay_go/db"
	"case_relay_go/middleware"
	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

// profileUpdateRequest mirrors services.UserUpdate with JSON names
type profileUpdateRequest struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	MobilePhone     *string `json:"mobilePhone"`
	WorkPhone       *string `json:"workPhone"`
	BadgeNumber     *string `json:"badgeNumber"`
	Rank            *string `json:"rank"`
	Department      *string `json:"department"`
	Division        *string `json:"division"`
	Precinct        *string `json:"precinct"`
	Station         *string `json:"station"`
	SpecialUnit     *string `json:"specialUnit"`
	SupervisorID    *string `json:"supervisorId"`
	ProfileImageURL *string `json:"profileImageUrl"`
	Clearance       *string `json:"clearance"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type createUserRequest struct {
	PoliceID    string  `json:"policeId"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Role        string  `json:"role"`
	BadgeNumber *string `json:"badgeNumber"`
	Rank        *string `json:"rank"`
	Department  *string `json:"department"`
}

func newUserService() *services.UserService {
	return services.NewUserService(db.DB)
}

func auditUser(c echo.Context, action models.AuditAction, user *models.User, description string, newValues interface{}) {
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       action,
		ResourceType: "User",
		ResourceID:   fmt.Sprint(user.ID),
		ResourceName: user.PoliceID,
		Description:  description,
		NewValues:    newValues,
	})
}

// GetProfileHandler returns the authenticated officer's profile
func GetProfileHandler(c echo.Context) error {
	current := middleware.GetCurrentUser(c)
	user, err := newUserService().GetByID(c.Request().Context(), current.ID)
	if err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsersHandler returns every account. Admin only.
func ListUsersHandler(c echo.Context) error {
	users, err := newUserService().List(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to list users")
	}
	return c.JSON(http.StatusOK, users)
}

// GetUserHandler returns one account by numeric id
func GetUserHandler(c echo.Context) error {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	user, err := newUserService().GetByID(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to load user")
	}
	return c.JSON(http.StatusOK, user)
}

// GetUserCasesHandler lists the cases created by or assigned to a user
func GetUserCasesHandler(c echo.Context) error {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	ctx := c.Request().Context()
	user, err := newUserService().GetByID(ctx, userID)
	if err != nil {
		return respondError(c, err, "Failed to load user")
	}
	cases, err := newCaseService().ListForUser(ctx, user.ID, user.PoliceID)
	if err != nil {
		return respondError(c, err, "Failed to list cases")
	}
	return c.JSON(http.StatusOK, cases)
}

// UpdateProfileHandler edits the caller's own profile
func UpdateProfileHandler(c echo.Context) error {
	current := middleware.GetCurrentUser(c)
	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, events, err := newUserService().UpdateProfile(c.Request().Context(), current.ID, services.UserUpdate(req), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to update profile")
	}
	dispatch(c, events)
	auditUser(c, models.AuditActionUpdate, user, "Profile updated", req)

	return respondData(c, http.StatusOK, "Profile updated successfully", user)
}

// ChangeRoleHandler sets a user's role. Admin only.
func ChangeRoleHandler(c echo.Context) error {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, events, err := newUserService().ChangeRole(c.Request().Context(), userID, req.Role, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to change role")
	}
	dispatch(c, events)
	auditUser(c, models.AuditActionUpdate, user, "Role changed to "+user.Role, map[string]string{"role": user.Role})

	return respondData(c, http.StatusOK, "Role updated successfully", user)
}

// PromoteToAdminHandler grants the Admin role
func PromoteToAdminHandler(c echo.Context) error {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	user, events, err := newUserService().PromoteToAdmin(c.Request().Context(), userID, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to promote user")
	}
	dispatch(c, events)
	auditUser(c, models.AuditActionUpdate, user, "Promoted to admin", map[string]string{"role": user.Role})

	return respondData(c, http.StatusOK, "User promoted to admin", user)
}

// CreateUserHandler opens an account with a temporary passcode. Admin only.
func CreateUserHandler(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, _, events, err := newUserService().Create(c.Request().Context(), services.NewUser(req), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to create user")
	}
	// The temporary passcode only travels by email
	dispatch(c, events)
	auditUser(c, models.AuditActionCreate, user, "User created", user)

	return respondData(c, http.StatusCreated, "User created successfully", user)
}

// DeleteUserHandler removes a user and moves their cases to the unassigned queue
func DeleteUserHandler(c echo.Context) error {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	events, err := newUserService().Delete(c.Request().Context(), userID, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to delete user")
	}
	dispatch(c, events)

	var reassigned []uint
	for _, event := range events {
		if deleted, ok := event.(services.UserDeleted); ok {
			reassigned = deleted.ReassignedCases
			services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
				Action:       models.AuditActionDelete,
				ResourceType: "User",
				ResourceID:   fmt.Sprint(userID),
				ResourceName: deleted.PoliceID,
				Description:  "User deleted",
				NewValues:    map[string]interface{}{"reassignedCases": deleted.ReassignedCases},
			})
		}
	}

	return respondData(c, http.StatusOK, "User deleted successfully", map[string]interface{}{
		"reassignedCases": reassigned,
	})
}
