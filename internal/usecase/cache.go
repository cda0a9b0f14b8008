package usecase

import (
	"context"
	"fmt"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// OntologyCachePattern matches every cached overview. Versions are local to
// a process, so entries are purged on reload rather than trusted across
// restarts.
const OntologyCachePattern = "nextstep:ontology:overview:*"

func OntologyCacheKey(version int64) string {
	return fmt.Sprintf("nextstep:ontology:overview:v%d", version)
}
