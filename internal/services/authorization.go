package services

import "github.com/coachhub/coachhub-api/internal/models"

func canAccessBooking(actor Actor, booking *models.Booking) bool {
	if booking == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCoach:
		return booking.CoachID == actor.ID
	case models.RoleClient:
		return booking.ClientID == actor.ID
	default:
		return false
	}
}

func canAccessProgram(actor Actor, program *models.Program) bool {
	if program == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCoach:
		return program.CoachID == actor.ID
	case models.RoleClient:
		return program.ClientID == actor.ID
	default:
		return false
	}
}

func canAccessSubscription(actor Actor, sub *models.Subscription) bool {
	if sub == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCoach:
		return sub.CoachID == actor.ID
	case models.RoleClient:
		return sub.ClientID == actor.ID
	default:
		return false
	}
}

func canManageRelationship(actor Actor, rel *models.Relationship) bool {
	if rel == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCoach:
		return rel.CoachID == actor.ID
	case models.RoleClient:
		return rel.ClientID == actor.ID
	default:
		return false
	}
}

// canModeratePost covers deletion of replies; first posts are handled separately.
func canModeratePost(actor Actor, post *models.Post) bool {
	if post == nil {
		return false
	}
	return actor.IsAdmin() || post.AuthorID == actor.ID
}

func canModerateTopic(actor Actor, topic *models.Topic) bool {
	if topic == nil {
		return false
	}
	return actor.IsAdmin() || topic.AuthorID == actor.ID
}
