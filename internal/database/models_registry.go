package database

import "femcircle/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Users come first so product foreign keys resolve.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Product{},
	}
}
