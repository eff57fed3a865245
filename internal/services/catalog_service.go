package services

import (
	"context"
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// CatalogService manages the reference data appointments hang off:
// customers, their vehicles and the service catalog.
type CatalogService struct {
	DB *gorm.DB

	// NameLocale selects the casing rules applied to customer names.
	// language.Und falls back to Portuguese, the shop's locale.
	NameLocale language.Tag
}

// NewCatalogService wires the reference-data service.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db, NameLocale: language.Portuguese}
}

func (s *CatalogService) nameLocaleOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.Portuguese
	}
	return s.NameLocale
}

// CreateCustomer registers a customer. Emails are unique; names are
// stored title-cased.
func (s *CatalogService) CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	c.Name = cases.Title(s.nameLocaleOrDefault()).String(c.Name)
	if err := repo.CreateCustomer(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCustomer returns one customer by id.
func (s *CatalogService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := repo.GetCustomer(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListCustomers returns all customers.
func (s *CatalogService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return repo.ListCustomers(ctx, s.DB)
}

// CreateVehicle registers a vehicle under an existing customer. Plates
// are unique.
func (s *CatalogService) CreateVehicle(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	if _, err := repo.GetCustomer(ctx, s.DB, v.CustomerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if err := repo.CreateVehicle(ctx, s.DB, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVehicle returns one vehicle by id.
func (s *CatalogService) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := repo.GetVehicle(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListVehicles returns vehicles, optionally scoped to one customer.
func (s *CatalogService) ListVehicles(ctx context.Context, customerID string) ([]domain.Vehicle, error) {
	return repo.ListVehicles(ctx, s.DB, customerID)
}

// CreateService adds a catalog entry. The area must be one of the fixed
// shop areas.
func (s *CatalogService) CreateService(ctx context.Context, svc *domain.Service) (*domain.Service, error) {
	if !validArea(svc.Area) {
		return nil, ErrInvalidArea
	}
	if err := repo.CreateService(ctx, s.DB, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetService returns one catalog entry by id.
func (s *CatalogService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := repo.GetService(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return svc, nil
}

// ListServices returns catalog entries, optionally filtered by area.
func (s *CatalogService) ListServices(ctx context.Context, area string) ([]domain.Service, error) {
	if area != "" && !validArea(area) {
		return nil, ErrInvalidArea
	}
	return repo.ListServices(ctx, s.DB, area)
}

func validArea(area string) bool {
	for _, a := range domain.ServiceAreas {
		if a == area {
			return true
		}
	}
	return false
}
