package seeder

import "context"

// Seeder loads one body of reference data. Run must be safe to repeat.
type Seeder interface {
	Name() string
	Run(ctx context.Context) error
}
