// Reference-data HTTP handlers: customers, vehicles and the service catalog.
//
//   - POST /customers                      GET /customers        GET /customers/{id}
//   - POST /customers/{id}/vehicles        GET /customers/{id}/vehicles
//   - POST /services                       GET /services         GET /services/{id}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// CreateCustomerRequest is the JSON payload for registering a customer.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required" example:"Maria Santos"`
	Email string `json:"email" binding:"required,email" example:"maria@example.pt"`
	Phone string `json:"phone" example:"+351912345678"`
}

// CreateVehicleRequest is the JSON payload for registering a vehicle.
type CreateVehicleRequest struct {
	Plate string `json:"plate" binding:"required" example:"AA-12-BB"`
	Make  string `json:"make" example:"Renault"`
	Model string `json:"model" example:"Clio"`
	Year  int    `json:"year" example:"2019"`
}

// CreateServiceRequest is the JSON payload for a catalog service.
type CreateServiceRequest struct {
	Name            string          `json:"name" binding:"required" example:"Brake service"`
	Description     string          `json:"description" example:"Pads and discs inspection and replacement"`
	Price           decimal.Decimal `json:"price"`
	LaborCost       decimal.Decimal `json:"labor_cost"`
	DurationMinutes int             `json:"duration_minutes" example:"90"`
	Area            string          `json:"area" binding:"required" example:"mecânica"`
}

// CustomerResponse wraps one customer.
type CustomerResponse struct {
	Customer *domain.Customer `json:"customer"`
}

// ListCustomersResponse wraps all customers.
type ListCustomersResponse struct {
	Customers []domain.Customer `json:"customers"`
}

// VehicleResponse wraps one vehicle.
type VehicleResponse struct {
	Vehicle *domain.Vehicle `json:"vehicle"`
}

// ListVehiclesResponse wraps a customer's vehicles.
type ListVehiclesResponse struct {
	Vehicles []domain.Vehicle `json:"vehicles"`
}

// ServiceResponse wraps one catalog service.
type ServiceResponse struct {
	Service *domain.Service `json:"service"`
}

// ListServicesResponse wraps catalog services.
type ListServicesResponse struct {
	Services []domain.Service `json:"services"`
}

// ListStatusesResponse wraps the appointment status catalog.
type ListStatusesResponse struct {
	Statuses []domain.Status `json:"statuses"`
}

// ListStatuses godoc
// @ID          listStatuses
// @Summary     List appointment statuses
// @Tags        Catalog
// @Produce     json
// @Success     200  {object}  handlers.ListStatusesResponse
// @Router      /statuses [get]
func (h *Handlers) ListStatuses(c *gin.Context) {
	statuses, err := repo.ListStatuses(c.Request.Context(), h.db)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListStatusesResponse{Statuses: statuses})
}

// CreateCustomer godoc
// @ID          createCustomer
// @Summary     Register a customer
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateCustomerRequest  true  "Customer payload"
// @Success     201  {object}  handlers.CustomerResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Email already registered"
// @Router      /customers [post]
func (h *Handlers) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "name and a valid email are required")
		return
	}
	cust, err := h.catalog.CreateCustomer(c.Request.Context(), &domain.Customer{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, CustomerResponse{Customer: cust})
}

// ListCustomers godoc
// @ID          listCustomers
// @Summary     List customers
// @Tags        Catalog
// @Produce     json
// @Success     200  {object}  handlers.ListCustomersResponse
// @Router      /customers [get]
func (h *Handlers) ListCustomers(c *gin.Context) {
	customers, err := h.catalog.ListCustomers(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCustomersResponse{Customers: customers})
}

// GetCustomer godoc
// @ID          getCustomer
// @Summary     Fetch one customer
// @Tags        Catalog
// @Produce     json
// @Param       id  path  string  true  "Customer ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.CustomerResponse
// @Failure     404  {object}  handlers.ErrorResponse "Customer not found"
// @Router      /customers/{id} [get]
func (h *Handlers) GetCustomer(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	cust, err := h.catalog.GetCustomer(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CustomerResponse{Customer: cust})
}

// CreateVehicle godoc
// @ID          createVehicle
// @Summary     Register a vehicle
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Customer ID (UUID)"  format(uuid)
// @Param       body  body  handlers.CreateVehicleRequest  true  "Vehicle payload"
// @Success     201  {object}  handlers.VehicleResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Customer not found"
// @Failure     409  {object}  handlers.ErrorResponse "Plate already registered"
// @Router      /customers/{id}/vehicles [post]
func (h *Handlers) CreateVehicle(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "plate is required")
		return
	}
	v, err := h.catalog.CreateVehicle(c.Request.Context(), &domain.Vehicle{
		CustomerID: id,
		Plate:      strings.ToUpper(strings.TrimSpace(req.Plate)),
		Make:       req.Make,
		Model:      req.Model,
		Year:       req.Year,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, VehicleResponse{Vehicle: v})
}

// ListVehicles godoc
// @ID          listVehicles
// @Summary     List a customer's vehicles
// @Tags        Catalog
// @Produce     json
// @Param       id  path  string  true  "Customer ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ListVehiclesResponse
// @Failure     404  {object}  handlers.ErrorResponse "Customer not found"
// @Router      /customers/{id}/vehicles [get]
func (h *Handlers) ListVehicles(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	if _, err := h.catalog.GetCustomer(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	vehicles, err := h.catalog.ListVehicles(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListVehiclesResponse{Vehicles: vehicles})
}

// CreateService godoc
// @ID          createService
// @Summary     Add a catalog service
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateServiceRequest  true  "Service payload"
// @Success     201  {object}  handlers.ServiceResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request or invalid area"
// @Router      /services [post]
func (h *Handlers) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "name and area are required")
		return
	}
	svc, err := h.catalog.CreateService(c.Request.Context(), &domain.Service{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		LaborCost:       req.LaborCost,
		DurationMinutes: req.DurationMinutes,
		Area:            req.Area,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ServiceResponse{Service: svc})
}

// ListServices godoc
// @ID          listServices
// @Summary     List catalog services
// @Tags        Catalog
// @Produce     json
// @Param       area  query  string  false "Filter by shop area"
// @Success     200  {object}  handlers.ListServicesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid area"
// @Router      /services [get]
func (h *Handlers) ListServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context(), c.Query("area"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListServicesResponse{Services: services})
}

// GetService godoc
// @ID          getService
// @Summary     Fetch one catalog service
// @Tags        Catalog
// @Produce     json
// @Param       id  path  string  true  "Service ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ServiceResponse
// @Failure     404  {object}  handlers.ErrorResponse "Service not found"
// @Router      /services/{id} [get]
func (h *Handlers) GetService(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	svc, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ServiceResponse{Service: svc})
}
