package mapping

import (
	"golang.org/x/sync/errgroup"

	"github.com/0x99f/dualsync/internal/models"
)

// syncParallel fans entity syncs out over a bounded worker pool. Each entity
// appears at most once in the unsynced list, so no two workers ever touch the
// same entity, and each worker writes only its own result slot. Workers never
// return errors: failures are already folded into the slots by syncOne.
func (s *Service) syncParallel(
	unsynced []models.EntityMapping,
	syncOne func(int, models.EntityMapping),
) {
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, m := range unsynced {
		g.Go(func() error {
			syncOne(i, m)
			return nil
		})
	}
	_ = g.Wait()
}
