package api

import (
	"errors"

	"github.com/artpar/switchyard/internal/core/slot"
)

// =============================================================================
// Request Types
// =============================================================================

// DeployRequest triggers a deployment of a service. The secret key, database
// URL, and environment tag are opaque pass-through values for the new
// container; they are never logged or echoed back.
type DeployRequest struct {
	ImageTag    string `json:"image_tag"`
	SecretKey   string `json:"secret_key"`
	DatabaseURL string `json:"database_url"`
	Environment string `json:"environment"`
}

// Validate checks required fields.
func (r DeployRequest) Validate() error {
	if r.ImageTag == "" {
		return errors.New("image_tag is required")
	}
	return nil
}

// =============================================================================
// Response Types
// =============================================================================

// ServiceResponse describes one managed service.
type ServiceResponse struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	BluePort   int    `json:"blue_port"`
	GreenPort  int    `json:"green_port"`
	HealthPath string `json:"health_path"`
}

// ListServicesResponse is the service listing response.
type ListServicesResponse struct {
	Services []ServiceResponse `json:"services"`
	Total    int               `json:"total"`
}

// SlotResponse describes one slot of a service.
type SlotResponse struct {
	Color       string `json:"color"`
	Port        int    `json:"port"`
	ContainerID string `json:"container_id,omitempty"`
	Image       string `json:"image,omitempty"`
	Status      string `json:"status"`
}

// SlotsResponse reports the resolved slot pair for a service.
type SlotsResponse struct {
	Service  string       `json:"service"`
	Active   SlotResponse `json:"active"`
	Inactive SlotResponse `json:"inactive"`
}

func slotToResponse(s slot.Slot) SlotResponse {
	return SlotResponse{
		Color:       string(s.Color),
		Port:        s.Port,
		ContainerID: s.ContainerID,
		Image:       s.Image,
		Status:      string(s.Status),
	}
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
