package handlers

import (
	"errors"
	"net/http"
	"strings"

	"case_relay_go/db"
	"case_relay_go/middleware"
	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	PoliceID string `json:"policeId"`
	Passcode string `json:"passcode"`
}

type registerRequest struct {
	PoliceID    string  `json:"policeId"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Passcode    string  `json:"passcode"`
	BadgeNumber *string `json:"badgeNumber"`
	Rank        *string `json:"rank"`
	Department  *string `json:"department"`
}

type changePasscodeRequest struct {
	CurrentPasscode string `json:"currentPasscode"`
	NewPasscode     string `json:"newPasscode"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPasscode string `json:"newPasscode"`
}

func newAuthService(c echo.Context) *services.AuthService {
	return services.NewAuthService(db.DB, getConfig(c))
}

// LoginHandler exchanges a police id and passcode for a bearer token
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.PoliceID) == "" || req.Passcode == "" {
		return badRequest(c, "Police ID and passcode are required")
	}

	result, events, err := newAuthService(c).Authenticate(c.Request().Context(), req.PoliceID, req.Passcode)
	dispatch(c, events)
	if err != nil {
		if services.Monitor != nil && (errors.Is(err, services.ErrUnauthorized) || errors.Is(err, services.ErrLocked)) {
			services.Monitor.TrackFailedLogin(c.RealIP(), req.PoliceID)
		}
		return respondError(c, err, "Login failed")
	}

	auditCtx := services.AuditContextFromActor(services.ActorFromUser(result.User))
	auditCtx.IPAddress = c.RealIP()
	auditCtx.UserAgent = c.Request().UserAgent()
	services.LogAuditEvent(db.DB, auditCtx, services.AuditEntry{
		Action:       models.AuditActionLogin,
		ResourceType: "User",
		ResourceID:   result.User.PoliceID,
		ResourceName: result.User.FullName(),
		Description:  "Signed in",
	})

	return respondData(c, http.StatusOK, "Login successful", result)
}

// RegisterHandler creates an officer account
func RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, events, err := newAuthService(c).Register(c.Request().Context(), services.RegisterInput{
		PoliceID:    req.PoliceID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Passcode:    req.Passcode,
		BadgeNumber: req.BadgeNumber,
		Rank:        req.Rank,
		Department:  req.Department,
	})
	if err != nil {
		return respondError(c, err, "Registration failed")
	}
	dispatch(c, events)

	return respondData(c, http.StatusCreated, "User registered successfully", user)
}

// ChangePasscodeHandler replaces the caller's passcode
func ChangePasscodeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	var req changePasscodeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	events, err := newAuthService(c).ChangePasscode(c.Request().Context(), user.PoliceID, req.CurrentPasscode, req.NewPasscode)
	if err != nil {
		return respondError(c, err, "Failed to change passcode")
	}
	dispatch(c, events)

	return respondMessage(c, http.StatusOK, "Passcode changed successfully")
}

// ForgotPasswordHandler always answers the same way so registered emails cannot be enumerated
func ForgotPasswordHandler(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "Email is required")
	}

	events, err := newAuthService(c).ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return respondError(c, err, "Failed to process request")
	}
	dispatch(c, events)

	return respondMessage(c, http.StatusOK, "If an account exists for that email, a reset link has been sent")
}

// ResetPasswordHandler consumes a reset token
func ResetPasswordHandler(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "Reset token is required")
	}

	events, err := newAuthService(c).ResetPassword(c.Request().Context(), req.Token, req.NewPasscode)
	if err != nil {
		return respondError(c, err, "Failed to reset passcode")
	}
	dispatch(c, events)

	return respondMessage(c, http.StatusOK, "Passcode has been reset")
}

// UserInfoHandler returns the authenticated account
func UserInfoHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	info, err := newAuthService(c).UserInfo(c.Request().Context(), user.PoliceID)
	if err != nil {
		return respondError(c, err, "Failed to load user")
	}
	return c.JSON(http.StatusOK, info)
}

// UnlockAccountHandler clears the lockout on an account
func UnlockAccountHandler(c echo.Context) error {
	policeID := c.Param("policeId")
	actor := middleware.GetActor(c)

	events, err := newAuthService(c).UnlockAccount(c.Request().Context(), policeID, actor)
	if err != nil {
		return respondError(c, err, "Failed to unlock account")
	}
	dispatch(c, events)

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       models.AuditActionUpdate,
		ResourceType: "User",
		ResourceID:   policeID,
		Description:  "Account unlocked",
	})

	return respondMessage(c, http.StatusOK, "Account unlocked")
}

// SecurityAlertsHandler lists recent failed-login alerts. Admin only.
func SecurityAlertsHandler(c echo.Context) error {
	alerts := []services.SecurityAlert{}
	if services.Monitor != nil {
		alerts = services.Monitor.GetRecentAlerts()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": alerts})
}
