package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/donor-auth/internal/api/dto"
	"github.com/spec-kit/donor-auth/internal/auth"
	"github.com/spec-kit/donor-auth/internal/service"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

// AccountHandler exposes signup, login and self-service endpoints.
type AccountHandler struct {
	accounts *service.AccountService
	carrier  *auth.SessionCarrier
	location *time.Location
}

// NewAccountHandler constructs handler. location renders memberSince.
func NewAccountHandler(accounts *service.AccountService, carrier *auth.SessionCarrier, location *time.Location) *AccountHandler {
	return &AccountHandler{accounts: accounts, carrier: carrier, location: location}
}

// Signup handles POST /api/signup.
func (h *AccountHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	res, err := h.accounts.Signup(c.UserContext(), service.SignupInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		AccountType: req.AccountType,
		BloodType:   req.BloodType,
		Phone:       req.Phone,
		Address:     req.Address,
	})
	if err != nil {
		return err
	}

	h.carrier.Set(c, res.Token.Value)
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Message: "User created successfully",
		User:    dto.ToPrincipalView(res.Principal, h.location),
		Token:   res.Token.Value,
	})
}

// Login handles POST /api/login.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	res, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.carrier.Set(c, res.Token.Value)
	return c.JSON(dto.AuthResponse{
		Message: "Login successful",
		User:    dto.ToPrincipalView(res.Principal, h.location),
		Token:   res.Token.Value,
	})
}

// Me handles GET /api/me.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("no token, authorization denied")
	}

	principal, err := h.accounts.Me(c.UserContext(), identity.PrincipalID)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserResponse{User: dto.ToPrincipalView(principal, h.location)})
}

// UpdateAvailability handles PUT /api/update-availability.
func (h *AccountHandler) UpdateAvailability(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("no token, authorization denied")
	}

	var req dto.AvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		req.Available = nil
	}

	principal, err := h.accounts.UpdateAvailability(c.UserContext(), identity.PrincipalID, req.Available)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserResponse{
		Message: "Availability updated successfully",
		User:    dto.ToPrincipalView(principal, h.location),
	})
}

// Logout handles POST /api/logout. It always succeeds and clears the session cookie.
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	h.accounts.Logout(c.UserContext(), h.carrier.Extract(c))
	h.carrier.Clear(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}
