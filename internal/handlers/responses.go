package handlers

import (
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/services"
)

// LoginResponse is the response for a successful login
type LoginResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// PlaylistResponse is the response for playlist operations
type PlaylistResponse struct {
	URL string `json:"url"`
}

// ResultsResponse is the response for the results view
type ResultsResponse struct {
	*services.ResultSet
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// FinishResponse is the response for finishing a constitution
type FinishResponse struct {
	*services.FinishResult
	Status *models.Status `json:"status,omitempty"`
}
