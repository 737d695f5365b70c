package sellerservice

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

// catalogFile формат файла каталога:
//
//	[[businesses]]
//	id = 1
//	timezone = "Europe/Moscow"
//	[businesses.working_hours.monday]
//	is_open = true
//	open_time = "09:00"
//	close_time = "18:00"
//
//	[[services]]
//	id = 10
//	business_id = 1
//	duration_minutes = 60
type catalogFile struct {
	Businesses []Business `toml:"businesses"`
	Services   []Service  `toml:"services"`
}

// StaticCatalog каталог бизнесов и услуг из TOML файла.
// Используется вместо SellerService в локальном окружении и тестах.
type StaticCatalog struct {
	businesses map[int64]*domain.Business
	services   map[int64]*domain.Service
}

// LoadCatalog читает каталог из файла
func LoadCatalog(path string, defaultLoc *time.Location) (*StaticCatalog, error) {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidCatalog, path, err)
	}
	return newCatalog(file, defaultLoc)
}

// ParseCatalog читает каталог из TOML строки
func ParseCatalog(data string, defaultLoc *time.Location) (*StaticCatalog, error) {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	return newCatalog(file, defaultLoc)
}

func newCatalog(file catalogFile, defaultLoc *time.Location) (*StaticCatalog, error) {
	catalog := &StaticCatalog{
		businesses: make(map[int64]*domain.Business, len(file.Businesses)),
		services:   make(map[int64]*domain.Service, len(file.Services)),
	}

	for i := range file.Businesses {
		business, err := file.Businesses[i].toDomain(defaultLoc)
		if err != nil {
			return nil, err
		}
		catalog.businesses[business.ID] = business
	}

	for i := range file.Services {
		service := file.Services[i].toDomain()
		if service.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: service id=%d: duration must be positive", ErrInvalidCatalog, service.ID)
		}
		catalog.services[service.ID] = service
	}

	return catalog, nil
}

// GetBusiness возвращает бизнес по ID
func (c *StaticCatalog) GetBusiness(_ context.Context, businessID int64) (*domain.Business, error) {
	business, ok := c.businesses[businessID]
	if !ok {
		return nil, ErrBusinessNotFound
	}
	copied := *business
	return &copied, nil
}

// GetService возвращает услугу бизнеса
func (c *StaticCatalog) GetService(_ context.Context, businessID, serviceID int64) (*domain.Service, error) {
	service, ok := c.services[serviceID]
	if !ok || service.BusinessID != businessID {
		return nil, ErrServiceNotFound
	}
	copied := *service
	return &copied, nil
}
