package inventory

import (
	"time"

	"RACE-backend/internal/lab/model"
)

type CreateComponentRequest struct {
	ComponentID string `json:"component_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Total       *int   `json:"total_quantity" binding:"required"`
	Working     *int   `json:"working_quantity" binding:"required"`
}

// 手動棚卸し（total / working を直接指定）
type UpdateComponentRequest struct {
	Total   *int `json:"total_quantity" binding:"required"`
	Working *int `json:"working_quantity" binding:"required"`
}

type ComponentResponse struct {
	ComponentID string    `json:"component_id"`
	Name        string    `json:"name"`
	Total       int       `json:"total_quantity"`
	Working     int       `json:"working_quantity"`
	NotWorking  int       `json:"not_working_quantity"`
	Issued      int       `json:"issued_quantity"`
	Available   int       `json:"available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToResponse(c model.Component) ComponentResponse {
	return ComponentResponse{
		ComponentID: c.ID,
		Name:        c.Name,
		Total:       c.Total,
		Working:     c.Working,
		NotWorking:  c.NotWorking,
		Issued:      c.Issued,
		Available:   c.Available(),
		UpdatedAt:   c.UpdatedAt,
	}
}
