package repositories

import (
	"github.com/yigit/engnotes/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	CatalogRepository *CatalogRepository
	UserRepository    *UserRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.Database) *Repositories {
	return &Repositories{
		CatalogRepository: NewCatalogRepository(database),
		UserRepository:    NewUserRepository(database),
	}
}
