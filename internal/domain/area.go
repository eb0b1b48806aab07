package domain

import "time"

// Area is an organizational unit tickets are routed to.
type Area struct {
	ID        string
	Name      string
	Details   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AreaSummary is the populated form of an area reference.
type AreaSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
