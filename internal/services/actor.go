package services

import "github.com/coachhub/coachhub-api/internal/models"

// Actor is the authenticated caller as resolved from the access token.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsCoach() bool  { return a.Role == models.RoleCoach }
func (a Actor) IsClient() bool { return a.Role == models.RoleClient }
func (a Actor) IsAdmin() bool  { return a.Role == models.RoleAdmin }
