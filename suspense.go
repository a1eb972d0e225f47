package meadow

import "fmt"

type assetStatusSource interface {
	Status(id AssetId) (LoadStatus, error)
}

// Suspense gates a subtree on a set of assets. Until every dependency is
// ready the subtree draws nothing; once resolved it stays resolved.
type Suspense struct {
	deps     []AssetId
	resolved bool
}

func NewSuspense(deps ...AssetId) *Suspense {
	return &Suspense{deps: deps}
}

func (s *Suspense) Resolved() bool {
	return s.resolved
}

// Check reports whether all dependencies are ready. A failed dependency is
// returned as an error and leaves the boundary unresolved.
func (s *Suspense) Check(assets assetStatusSource) (bool, error) {
	if s.resolved {
		return true, nil
	}
	for _, id := range s.deps {
		status, err := assets.Status(id)
		switch status {
		case LoadFailed:
			return false, fmt.Errorf("asset %s: %w", id, err)
		case LoadPending:
			return false, nil
		}
	}
	s.resolved = true
	return true, nil
}
