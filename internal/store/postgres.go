// Package store persists ingested match records in PostgreSQL so runs can be
// repeated over already-acquired data.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riftluck/stats-api/internal/models"
)

// PgPool is the subset of *pgxpool.Pool the store needs.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

var _ PgPool = (*pgxpool.Pool)(nil)

const Schema = `
CREATE TABLE IF NOT EXISTS player_games (
	match_id              TEXT NOT NULL,
	player_id             TEXT NOT NULL,
	team_id               INTEGER NOT NULL,
	role                  TEXT NOT NULL DEFAULT '',
	champion              TEXT NOT NULL DEFAULT '',
	kills                 INTEGER NOT NULL,
	deaths                INTEGER NOT NULL,
	assists               INTEGER NOT NULL,
	team_kills            INTEGER NOT NULL,
	damage_dealt          DOUBLE PRECISION NOT NULL,
	team_damage           DOUBLE PRECISION NOT NULL,
	gold_earned           DOUBLE PRECISION NOT NULL DEFAULT 0,
	team_gold             DOUBLE PRECISION NOT NULL DEFAULT 0,
	creep_score           INTEGER NOT NULL,
	vision_score          DOUBLE PRECISION NOT NULL,
	game_duration_minutes DOUBLE PRECISION NOT NULL,
	win                   BOOLEAN NOT NULL,
	PRIMARY KEY (match_id, player_id)
);

CREATE TABLE IF NOT EXISTS timeline_snapshots (
	match_id     TEXT NOT NULL,
	team_id      INTEGER NOT NULL,
	gold         INTEGER NOT NULL,
	experience   INTEGER NOT NULL,
	creep_score  INTEGER NOT NULL,
	kills        INTEGER NOT NULL,
	dragon_kills INTEGER,
	lane_plates  INTEGER,
	PRIMARY KEY (match_id, team_id)
);
`

var recordColumns = []string{
	"match_id", "player_id", "team_id", "role", "champion",
	"kills", "deaths", "assists", "team_kills",
	"damage_dealt", "team_damage", "gold_earned", "team_gold",
	"creep_score", "vision_score", "game_duration_minutes", "win",
}

var snapshotColumns = []string{
	"match_id", "team_id", "gold", "experience", "creep_score", "kills", "dragon_kills", "lane_plates",
}

// Filter selects stored matches. An empty filter loads everything up to Limit.
type Filter struct {
	MatchIDs []string
	PlayerID string
	Limit    int
}

// RecordStore reads and writes PlayerGameRecord and TimelineSnapshot10 rows.
type RecordStore struct {
	pg PgPool
}

func NewRecordStore(pg PgPool) *RecordStore {
	return &RecordStore{pg: pg}
}

func (s *RecordStore) Migrate(ctx context.Context) error {
	if _, err := s.pg.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// matchScope returns the match ids a filter resolves to, or nil for all.
func (s *RecordStore) matchScope(ctx context.Context, f Filter) ([]string, error) {
	if len(f.MatchIDs) > 0 {
		return f.MatchIDs, nil
	}
	if f.PlayerID == "" && f.Limit <= 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT match_id FROM player_games`
	var args []any
	if f.PlayerID != "" {
		query += ` WHERE player_id = $1`
		args = append(args, f.PlayerID)
	}
	query += ` ORDER BY match_id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("match scope: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("match scope: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Load returns the records and snapshots selected by f.
func (s *RecordStore) Load(ctx context.Context, f Filter) (models.PipelineInput, error) {
	var in models.PipelineInput

	ids, err := s.matchScope(ctx, f)
	if err != nil {
		return in, err
	}
	if ids != nil && len(ids) == 0 {
		return in, nil
	}

	recQuery := `SELECT match_id, player_id, team_id, role, champion, kills, deaths, assists, team_kills,
		damage_dealt, team_damage, gold_earned, team_gold, creep_score, vision_score,
		game_duration_minutes, win
		FROM player_games`
	snapQuery := `SELECT match_id, team_id, gold, experience, creep_score, kills, dragon_kills, lane_plates
		FROM timeline_snapshots`
	var args []any
	if ids != nil {
		recQuery += ` WHERE match_id = ANY($1)`
		snapQuery += ` WHERE match_id = ANY($1)`
		args = append(args, ids)
	}
	recQuery += ` ORDER BY match_id, team_id, player_id`
	snapQuery += ` ORDER BY match_id, team_id`

	rows, err := s.pg.Query(ctx, recQuery, args...)
	if err != nil {
		return in, fmt.Errorf("load records: %w", err)
	}
	for rows.Next() {
		var r models.PlayerGameRecord
		if err := rows.Scan(&r.MatchID, &r.PlayerID, &r.TeamID, &r.Role, &r.Champion,
			&r.Kills, &r.Deaths, &r.Assists, &r.TeamKills,
			&r.DamageDealt, &r.TeamDamage, &r.GoldEarned, &r.TeamGold,
			&r.CreepScore, &r.VisionScore, &r.GameDurationMinutes, &r.Win); err != nil {
			rows.Close()
			return in, fmt.Errorf("scan record: %w", err)
		}
		in.Records = append(in.Records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return in, fmt.Errorf("load records: %w", err)
	}

	rows, err = s.pg.Query(ctx, snapQuery, args...)
	if err != nil {
		return in, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sn models.TimelineSnapshot10
		if err := rows.Scan(&sn.MatchID, &sn.TeamID, &sn.Gold, &sn.Experience, &sn.CreepScore,
			&sn.Kills, &sn.DragonKills, &sn.LanePlates); err != nil {
			return in, fmt.Errorf("scan snapshot: %w", err)
		}
		in.Snapshots = append(in.Snapshots, sn)
	}
	if err := rows.Err(); err != nil {
		return in, fmt.Errorf("load snapshots: %w", err)
	}
	return in, nil
}

// Save replaces every match present in in. Existing rows of those matches
// are deleted first so a re-ingested match never mixes two versions.
func (s *RecordStore) Save(ctx context.Context, in models.PipelineInput) (int64, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range in.Records {
		if !seen[r.MatchID] {
			seen[r.MatchID] = true
			ids = append(ids, r.MatchID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	for _, table := range []string{"player_games", "timeline_snapshots"} {
		if _, err := s.pg.Exec(ctx, `DELETE FROM `+table+` WHERE match_id = ANY($1)`, ids); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	n, err := s.pg.CopyFrom(ctx, pgx.Identifier{"player_games"}, recordColumns,
		pgx.CopyFromSlice(len(in.Records), func(i int) ([]any, error) {
			r := in.Records[i]
			return []any{r.MatchID, r.PlayerID, r.TeamID, r.Role, r.Champion,
				r.Kills, r.Deaths, r.Assists, r.TeamKills,
				r.DamageDealt, r.TeamDamage, r.GoldEarned, r.TeamGold,
				r.CreepScore, r.VisionScore, r.GameDurationMinutes, r.Win}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy records: %w", err)
	}

	var snaps []models.TimelineSnapshot10
	for _, sn := range in.Snapshots {
		if seen[sn.MatchID] {
			snaps = append(snaps, sn)
		}
	}
	if len(snaps) > 0 {
		_, err = s.pg.CopyFrom(ctx, pgx.Identifier{"timeline_snapshots"}, snapshotColumns,
			pgx.CopyFromSlice(len(snaps), func(i int) ([]any, error) {
				sn := snaps[i]
				return []any{sn.MatchID, sn.TeamID, sn.Gold, sn.Experience, sn.CreepScore,
					sn.Kills, sn.DragonKills, sn.LanePlates}, nil
			}))
		if err != nil {
			return n, fmt.Errorf("copy snapshots: %w", err)
		}
	}
	return n, nil
}

// Connect opens a pgx pool with the given size bounds.
func Connect(ctx context.Context, url string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
