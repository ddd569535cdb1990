package logic

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/riftluck/stats-api/internal/models"
)

var errTimelineIncomplete = errors.New("timeline incomplete")

// snapshotIndex maps match -> team -> 10 minute snapshot.
type snapshotIndex map[string]map[int]*models.TimelineSnapshot10

func indexSnapshots(snapshots []models.TimelineSnapshot10) snapshotIndex {
	idx := make(snapshotIndex)
	for i := range snapshots {
		s := &snapshots[i]
		teams, ok := idx[s.MatchID]
		if !ok {
			teams = make(map[int]*models.TimelineSnapshot10, 2)
			idx[s.MatchID] = teams
		}
		teams[s.TeamID] = s
	}
	return idx
}

// pair returns the team's snapshot and its single opponent's. Matches with a
// missing side, or more than two sides, have no pair.
func (idx snapshotIndex) pair(matchID string, teamID int) (team, enemy *models.TimelineSnapshot10, ok bool) {
	teams := idx[matchID]
	if len(teams) != 2 {
		return nil, nil, false
	}
	team, ok = teams[teamID]
	if !ok {
		return nil, nil, false
	}
	for id, s := range teams {
		if id != teamID {
			enemy = s
		}
	}
	return team, enemy, enemy != nil
}

// DeriveRow computes the derived metrics of one record. team and enemy may be
// nil, in which case the early-game differentials are left unset. The returned
// errors describe undefined ratios; the row is still returned with those
// metrics listed in Undefined.
func DeriveRow(rec models.PlayerGameRecord, team, enemy *models.TimelineSnapshot10) (models.DerivedFeatureRow, []error) {
	row := models.DerivedFeatureRow{Record: rec}
	var errs []error

	undefined := func(m models.Metric, detail string) {
		row.Undefined = append(row.Undefined, m)
		errs = append(errs, &RowError{
			Err:      ErrUndefinedRatio,
			MatchID:  rec.MatchID,
			PlayerID: rec.PlayerID,
			Role:     rec.Role,
			Metric:   m,
			Detail:   detail,
		})
	}

	if rec.TeamKills > 0 {
		row.KillParticipation = float64(rec.Kills+rec.Assists) / float64(rec.TeamKills)
	} else {
		undefined(models.MetricKillParticipation, "team_kills is 0")
	}

	if rec.TeamDamage > 0 {
		row.DamageShare = rec.DamageDealt / rec.TeamDamage
	} else {
		undefined(models.MetricDamageShare, "team_damage is 0")
	}

	if rec.TeamGold > 0 {
		row.GoldShare = rec.GoldEarned / rec.TeamGold
	} else {
		undefined(models.MetricGoldShare, "team_gold is 0")
	}

	if rec.GameDurationMinutes > 0 {
		row.CSPerMin = float64(rec.CreepScore) / rec.GameDurationMinutes
		row.VisionPerMin = rec.VisionScore / rec.GameDurationMinutes
	} else {
		detail := fmt.Sprintf("game duration %g minutes", rec.GameDurationMinutes)
		undefined(models.MetricCSPerMin, detail)
		undefined(models.MetricVisionPerMin, detail)
	}

	deaths := rec.Deaths
	if deaths < 1 {
		deaths = 1
	}
	row.KDA = float64(rec.Kills+rec.Assists) / float64(deaths)

	if team != nil && enemy != nil {
		row.HasTimeline = true
		row.GoldDiff10 = float64(team.Gold - enemy.Gold)
		row.XPDiff10 = float64(team.Experience - enemy.Experience)
		row.CSDiff10 = float64(team.CreepScore - enemy.CreepScore)
		row.KillsDiff10 = float64(team.Kills - enemy.Kills)
		row.DragonsDiff10 = optionalDiff(team.DragonKills, enemy.DragonKills)
		row.PlatesDiff10 = optionalDiff(team.LanePlates, enemy.LanePlates)
	}

	return row, errs
}

func optionalDiff(team, enemy *int) *float64 {
	if team == nil || enemy == nil {
		return nil
	}
	d := float64(*team - *enemy)
	return &d
}

// markComplete flags whether every model feature is present on the row.
func markComplete(row *models.DerivedFeatureRow, features []models.Feature) {
	for _, f := range features {
		if _, ok := row.Feature(f); !ok {
			row.TimelineComplete = false
			return
		}
	}
	row.TimelineComplete = len(features) > 0
}

// DeriveFeatures derives every record in parallel. Rows are independent, so
// each goroutine writes only its own slot. Output order matches input order.
func DeriveFeatures(ctx context.Context, in models.PipelineInput, features []models.Feature, workers int) ([]models.DerivedFeatureRow, []error, error) {
	idx := indexSnapshots(in.Snapshots)

	rows := make([]models.DerivedFeatureRow, len(in.Records))
	rowErrs := make([][]error, len(in.Records))

	if workers <= 0 {
		workers = 1
	}
	chunk := (len(in.Records) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(in.Records); start += chunk {
		end := min(start+chunk, len(in.Records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec := in.Records[i]
				team, enemy, _ := idx.pair(rec.MatchID, rec.TeamID)
				rows[i], rowErrs[i] = DeriveRow(rec, team, enemy)
				markComplete(&rows[i], features)
				if !rows[i].TimelineComplete {
					rowErrs[i] = append(rowErrs[i], &RowError{
						Err:      errTimelineIncomplete,
						MatchID:  rec.MatchID,
						PlayerID: rec.PlayerID,
						Role:     rec.Role,
						Detail:   "excluded from win probability",
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("derive features: %w", err)
	}

	var errs []error
	for _, e := range rowErrs {
		errs = append(errs, e...)
	}
	return rows, errs, nil
}
