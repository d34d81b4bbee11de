package domain

import (
	"time"

	"github.com/google/uuid"
)

// GitHubConnection links a kiln user to a GitHub account
type GitHubConnection struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Login       string
	AccessToken string
	Scope       string
	LinkedAt    time.Time
}
