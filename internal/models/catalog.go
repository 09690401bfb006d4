package models

// Service is a bookable offering of a company. The client only holds a read-only copy.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration"`
	Category        string  `json:"category,omitempty"`
	OnlineBooking   bool    `json:"onlineBooking"`
}

// Professional performs services.
type Professional struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// OnlineServices keeps only the services flagged for online booking, preserving order.
func OnlineServices(services []Service) []Service {
	out := make([]Service, 0, len(services))
	for _, s := range services {
		if s.OnlineBooking {
			out = append(out, s)
		}
	}
	return out
}

// FindService returns the service with the given id.
func FindService(services []Service, id string) (Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// FindProfessional returns the professional with the given id.
func FindProfessional(professionals []Professional, id string) (Professional, bool) {
	for _, p := range professionals {
		if p.ID == id {
			return p, true
		}
	}
	return Professional{}, false
}
