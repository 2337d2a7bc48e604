package model

import (
	"time"

	"github.com/google/uuid"
)

// Negocio is the tenant that owns cortes and ventas. Account management lives
// elsewhere; this engine only checks existence.
type Negocio struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"not null"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (Negocio) TableName() string { return "negocios" }
