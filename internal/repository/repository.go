package repository

import (
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Analysis AnalysisRepository
	Profile  ProfileRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Analysis: NewAnalysisRepository(db),
		Profile:  NewProfileRepository(db),
	}
}

func scopeFor(owner domain.User) database.Claims {
	return database.Claims{Subject: owner.ID, Email: owner.Email}
}
