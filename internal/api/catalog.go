package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"kairon/internal/models"
)

// ListServices returns the company's services, optionally only those a professional performs.
func (c *Client) ListServices(ctx context.Context, professionalID string) ([]models.Service, error) {
	cacheKey := c.cacheKey("services:" + professionalID)
	var cached []models.Service
	if c.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	q := url.Values{}
	if professionalID != "" {
		q.Set("professionalId", professionalID)
	}
	body, err := c.do(ctx, call{endpoint: "list_services", method: http.MethodGet, path: "/services", query: q})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	services, err := unwrapCollection[models.Service](body)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	c.writeCache(ctx, cacheKey, services)
	return services, nil
}

func (c *Client) ListProfessionals(ctx context.Context) ([]models.Professional, error) {
	cacheKey := c.cacheKey("professionals")
	var cached []models.Professional
	if c.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	body, err := c.do(ctx, call{endpoint: "list_professionals", method: http.MethodGet, path: "/professionals"})
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	professionals, err := unwrapCollection[models.Professional](body)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	c.writeCache(ctx, cacheKey, professionals)
	return professionals, nil
}

// GetAvailability returns the slot candidates for one date. Availability is never cached.
func (c *Client) GetAvailability(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error) {
	q := url.Values{}
	if serviceID != "" {
		q.Set("serviceId", serviceID)
	}
	q.Set("professionalId", professionalID)
	q.Set("date", date.String())

	body, err := c.do(ctx, call{endpoint: "get_availability", method: http.MethodGet, path: "/appointments/availability", query: q})
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	slots, err := unwrapCollection[models.TimeSlot](body)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return slots, nil
}
