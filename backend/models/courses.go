package models

import "gorm.io/gorm"

const CategoryQuiz = "Quiz"

// Material is the catalogue entry the content directory reads. CRUD for it lives elsewhere.
type Material struct {
	gorm.Model
	Title    string
	Category string // Lesson, Quiz, Reading ...
	Format   string // Visual, Verbal, Audio
}
