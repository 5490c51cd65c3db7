package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/donor-auth/internal/api/dto"
	"github.com/spec-kit/donor-auth/internal/domain"
	"github.com/spec-kit/donor-auth/internal/service"
)

// AdminHandler exposes the admin dashboard endpoints.
type AdminHandler struct {
	admin    *service.AdminService
	location *time.Location
}

// NewAdminHandler constructs handler. location renders memberSince.
func NewAdminHandler(admin *service.AdminService, location *time.Location) *AdminHandler {
	return &AdminHandler{admin: admin, location: location}
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Users handles GET /api/admin/users.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	return h.list(c, h.admin.ListUsers)
}

// Donors handles GET /api/admin/donors.
func (h *AdminHandler) Donors(c *fiber.Ctx) error {
	return h.list(c, h.admin.ListDonors)
}

// Hospitals handles GET /api/admin/hospitals.
func (h *AdminHandler) Hospitals(c *fiber.Ctx) error {
	return h.list(c, h.admin.ListHospitals)
}

func (h *AdminHandler) list(c *fiber.Ctx, load func(context.Context) ([]*domain.Principal, error)) error {
	principals, err := load(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ToPrincipalViews(principals, h.location))
}
