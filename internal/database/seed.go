package database

import (
	"context"
	"fmt"
	"os"

	"kairon/internal/models"

	"gopkg.in/yaml.v3"
)

// Seed is the catalog the mock backend starts with.
type Seed struct {
	Services      []SeedService      `yaml:"services"`
	Professionals []SeedProfessional `yaml:"professionals"`
}

type SeedService struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Price         float64 `yaml:"price"`
	Duration      int     `yaml:"duration"`
	Category      string  `yaml:"category"`
	OnlineBooking *bool   `yaml:"online_booking"`
}

type SeedProfessional struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Specialty string   `yaml:"specialty"`
	AvatarURL string   `yaml:"avatar_url"`
	Services  []string `yaml:"services"`
}

func boolPtr(b bool) *bool { return &b }

// DefaultSeed is used when no seed file is configured.
func DefaultSeed() Seed {
	return Seed{
		Services: []SeedService{
			{ID: "svc-haircut", Name: "Haircut", Price: 35, Duration: 30, Category: "hair"},
			{ID: "svc-coloring", Name: "Coloring", Price: 80, Duration: 90, Category: "hair"},
			{ID: "svc-manicure", Name: "Manicure", Price: 25, Duration: 45, Category: "nails"},
			{ID: "svc-consult", Name: "Consultation", Description: "Booked by phone only", Price: 0, Duration: 15, OnlineBooking: boolPtr(false)},
		},
		Professionals: []SeedProfessional{
			{ID: "pro-anna", Name: "Anna", Specialty: "Stylist", Services: []string{"svc-haircut", "svc-coloring", "svc-consult"}},
			{ID: "pro-ivan", Name: "Ivan", Specialty: "Barber", Services: []string{"svc-haircut"}},
			{ID: "pro-maria", Name: "Maria", Specialty: "Nail artist", Services: []string{"svc-manicure"}},
		},
	}
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return seed, nil
}

// ApplySeed upserts the seed catalog. It is safe to run on every start.
func (db *DB) ApplySeed(ctx context.Context, seed Seed) error {
	for i, s := range seed.Services {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("seed service #%d: id and name are required", i)
		}
		online := true
		if s.OnlineBooking != nil {
			online = *s.OnlineBooking
		}
		svc := models.Service{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			Price:           s.Price,
			DurationMinutes: s.Duration,
			Category:        s.Category,
			OnlineBooking:   online,
		}
		if svc.DurationMinutes <= 0 {
			svc.DurationMinutes = 30
		}
		if err := db.UpsertService(ctx, svc, i); err != nil {
			return err
		}
	}

	for _, p := range seed.Professionals {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("seed professional %q: id and name are required", p.ID)
		}
		pro := models.Professional{ID: p.ID, Name: p.Name, Specialty: p.Specialty, AvatarURL: p.AvatarURL}
		if err := db.UpsertProfessional(ctx, pro); err != nil {
			return err
		}
		for _, serviceID := range p.Services {
			if err := db.AssignService(ctx, p.ID, serviceID); err != nil {
				return err
			}
		}
	}

	db.logger.Info().
		Int("services", len(seed.Services)).
		Int("professionals", len(seed.Professionals)).
		Msg("seed applied")
	return nil
}
