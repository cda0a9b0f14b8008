package seeder

import (
	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/repository"
)

// Defaults returns the seeders run by `nextstep seed`.
func Defaults(path string, store repository.Ontology, db database.DB) []Seeder {
	return []Seeder{
		OntologySeeder{Path: path, Store: store, DB: db},
	}
}
