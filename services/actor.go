package services

import "case_relay_go/models"

// Actor is the user on whose behalf an operation runs
type Actor struct {
	UserID   uint
	PoliceID string
	Role     string
	Name     string
}

// ActorFromUser builds an actor from an authenticated user record
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		UserID:   u.ID,
		PoliceID: u.PoliceID,
		Role:     u.Role,
		Name:     u.FullName(),
	}
}

// SystemActor is used for operations the service performs on its own
func SystemActor() Actor {
	return Actor{PoliceID: models.SystemAuthorID, Role: models.RoleAdmin, Name: "CaseRelay"}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
