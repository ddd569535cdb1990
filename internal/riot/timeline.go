package riot

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/riftluck/stats-api/internal/models"
)

const (
	snapshotMinute = 10
	snapshotMS     = snapshotMinute * 60 * 1000
)

// ErrShortTimeline marks a timeline that ends before the snapshot minute.
var ErrShortTimeline = fmt.Errorf("timeline shorter than %d minutes", snapshotMinute)

// Snapshots builds the two 10 minute team snapshots of a match. Gold, xp and
// creep score come from frame 10; kills, dragons and plates count events up
// to 10:00. A timeline without frame 10 yields ErrShortTimeline rather than
// a snapshot from an earlier frame.
func Snapshots(match *MatchResponse, tl *TimelineResponse) ([]models.TimelineSnapshot10, error) {
	frames := tl.Info.Frames
	if len(frames) <= snapshotMinute {
		return nil, fmt.Errorf("match %s: %w (%d frames)", match.Metadata.MatchID, ErrShortTimeline, len(frames))
	}
	teamOf := match.teamOf()

	snaps := make(map[int]*models.TimelineSnapshot10)
	snap := func(team int) *models.TimelineSnapshot10 {
		s, ok := snaps[team]
		if !ok {
			zero := 0
			dragons, plates := zero, zero
			s = &models.TimelineSnapshot10{
				MatchID:     match.Metadata.MatchID,
				TeamID:      team,
				DragonKills: &dragons,
				LanePlates:  &plates,
			}
			snaps[team] = s
		}
		return s
	}
	for _, p := range match.Info.Participants {
		snap(p.TeamID)
	}
	if len(snaps) != 2 {
		return nil, fmt.Errorf("match %s has %d teams", match.Metadata.MatchID, len(snaps))
	}

	for key, pf := range frames[snapshotMinute].ParticipantFrames {
		pid := pf.ParticipantID
		if pid == 0 {
			pid, _ = strconv.Atoi(key)
		}
		team, ok := teamOf[pid]
		if !ok {
			continue
		}
		s := snap(team)
		s.Gold += pf.TotalGold
		s.Experience += pf.XP
		s.CreepScore += pf.MinionsKilled + pf.JungleMinionsKilled
	}

	for _, frame := range frames {
		for _, ev := range frame.Events {
			if ev.Timestamp > snapshotMS {
				continue
			}
			switch ev.Type {
			case EventChampionKill:
				if team, ok := teamOf[ev.KillerID]; ok {
					snap(team).Kills++
				}
			case EventEliteMonster:
				if ev.MonsterType == MonsterDragon {
					if s, ok := snaps[ev.KillerTeamID]; ok {
						*s.DragonKills++
					}
				}
			case EventPlateDestroyed:
				if _, ok := snaps[ev.TeamID]; !ok {
					continue
				}
				for team, s := range snaps {
					if team != ev.TeamID {
						*s.LanePlates++
					}
				}
			}
		}
	}

	teams := make([]int, 0, len(snaps))
	for team := range snaps {
		teams = append(teams, team)
	}
	sort.Ints(teams)
	out := make([]models.TimelineSnapshot10, 0, len(teams))
	for _, team := range teams {
		out = append(out, *snaps[team])
	}
	return out, nil
}
