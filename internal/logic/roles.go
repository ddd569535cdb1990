package logic

import (
	"github.com/riftluck/stats-api/internal/models"
)

// Cohorts partitions row indices by role. Every valid role has an entry,
// possibly empty.
type Cohorts map[models.Role][]int

// ResolveRoles groups rows into role cohorts. Rows whose role is missing or
// outside the closed enumeration are left out and reported.
func ResolveRoles(rows []models.DerivedFeatureRow) (Cohorts, []error) {
	cohorts := make(Cohorts, len(models.AllRoles))
	for _, r := range models.AllRoles {
		cohorts[r] = nil
	}

	var errs []error
	for i := range rows {
		rec := rows[i].Record
		role, err := models.ParseRole(rec.Role)
		if err != nil {
			errs = append(errs, &RowError{
				Err:      ErrUnknownRole,
				MatchID:  rec.MatchID,
				PlayerID: rec.PlayerID,
				Role:     rec.Role,
				Detail:   err.Error(),
			})
			continue
		}
		cohorts[role] = append(cohorts[role], i)
	}
	return cohorts, errs
}
