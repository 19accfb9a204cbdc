package services

import (
	"context"
	"errors"

	"philosofium/backend/models"

	"gorm.io/gorm"
)

// MaterialInfo is the slice of catalogue metadata the engine needs.
type MaterialInfo struct {
	ID       uint
	Category string
	Format   string
}

// ContentDirectory resolves a material id to its metadata.
type ContentDirectory interface {
	Lookup(ctx context.Context, materialID uint) (MaterialInfo, error)
}

// GormContentDirectory reads the materials table.
type GormContentDirectory struct {
	DB *gorm.DB
}

func NewGormContentDirectory(db *gorm.DB) *GormContentDirectory {
	return &GormContentDirectory{DB: db}
}

func (d *GormContentDirectory) Lookup(ctx context.Context, materialID uint) (MaterialInfo, error) {
	var material models.Material
	err := d.DB.WithContext(ctx).Select("id", "category", "format").First(&material, materialID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MaterialInfo{}, ErrMaterialNotFound
	}
	if err != nil {
		return MaterialInfo{}, persistenceErr("lookup material", err)
	}
	return MaterialInfo{ID: material.ID, Category: material.Category, Format: material.Format}, nil
}
