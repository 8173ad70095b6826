package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-service/internal/api/dto"
	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/service"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// ClientsHandler exposes client directory endpoints.
type ClientsHandler struct {
	service *service.ClientService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{service: clientService}
}

// Create POST /clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	client, err := h.service.Create(c.Context(), service.ClientInput{
		Name:         req.Name,
		Company:      req.Company,
		ContactEmail: req.ContactEmail,
		UserID:       req.UserID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": clientResponse(client)})
}

// List GET /clients.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	clients, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, clientResponse(&clients[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	client, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// Update PUT /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	var req dto.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	client, err := h.service.Update(c.Context(), c.Params("id"), service.ClientInput{
		Name:         req.Name,
		Company:      req.Company,
		ContactEmail: req.ContactEmail,
		UserID:       req.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// Delete DELETE /clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TechniciansHandler exposes technician directory endpoints.
type TechniciansHandler struct {
	service *service.TechnicianService
	limit   int
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicianService *service.TechnicianService, workloadLimit int) *TechniciansHandler {
	return &TechniciansHandler{service: technicianService, limit: workloadLimit}
}

// Create POST /technicians.
func (h *TechniciansHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	technician, err := h.service.Create(c.Context(), service.TechnicianInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Availability:   req.Availability,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": technicianResponse(technician)})
}

// List GET /technicians.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	technicians, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for i := range technicians {
		items = append(items, technicianResponse(&technicians[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /technicians/:id.
func (h *TechniciansHandler) Get(c *fiber.Ctx) error {
	technician, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(technician)})
}

// Workload GET /technicians/:id/workload.
func (h *TechniciansHandler) Workload(c *fiber.Ctx) error {
	id := c.Params("id")
	count, err := h.service.CountInProgress(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TechnicianWorkloadResponse{
		TechnicianID: id,
		InProgress:   count,
		Limit:        h.limit,
	}})
}

// Update PUT /technicians/:id.
func (h *TechniciansHandler) Update(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	technician, err := h.service.Update(c.Context(), c.Params("id"), service.TechnicianInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Availability:   req.Availability,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(technician)})
}

// Delete DELETE /technicians/:id.
func (h *TechniciansHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CategoriesHandler exposes category directory endpoints.
type CategoriesHandler struct {
	service *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categoryService *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{service: categoryService}
}

// Create POST /categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.Create(c.Context(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// List GET /categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	category, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// Update PUT /categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.Update(c.Context(), c.Params("id"), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// Delete DELETE /categories/:id.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func clientResponse(client *domain.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:           client.ID,
		Name:         client.Name,
		Company:      client.Company,
		ContactEmail: client.ContactEmail,
		UserID:       client.UserID,
	}
}

func technicianResponse(technician *domain.Technician) dto.TechnicianResponse {
	return dto.TechnicianResponse{
		ID:             technician.ID,
		Name:           technician.Name,
		Email:          technician.Email,
		Phone:          technician.Phone,
		Specialization: technician.Specialization,
		Availability:   technician.Availability,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
	}
}
