// Command score runs the scoring pipeline offline over Riot match dumps or
// stored records and writes the scored game table as CSV.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/config"
	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/models"
	"github.com/riftluck/stats-api/internal/riot"
	"github.com/riftluck/stats-api/internal/store"
)

// CLI flags
var (
	rawDir      = flag.String("raw", "data/raw", "Directory of match dumps (*.json, *.json.gz)")
	timelineDir = flag.String("timelines", "data/timeline_raw", "Directory of timeline dumps, empty to skip")
	fromDB      = flag.Bool("from-db", false, "Load records from POSTGRES_URL instead of dumps")
	matchIDs    = flag.String("matches", "", "Comma separated match ids to load from the database")
	saveDB      = flag.Bool("save", false, "Persist loaded dumps to POSTGRES_URL before scoring")
	outPath     = flag.String("out", "", "CSV output path, stdout when empty")
	reportPath  = flag.String("report", "", "Write the JSON report for the focus player to this path")
	player      = flag.String("player", "", "Report player, defaults to FOCUS_PLAYER")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Sugar().Errorw("Scoring failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()

	in, err := loadInput(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	sugar.Infow("Input loaded", "records", len(in.Records), "snapshots", len(in.Snapshots))

	scoring, err := logic.NewScoringService(cfg.Options(), logger)
	if err != nil {
		return err
	}
	res, err := scoring.Run(ctx, in)
	if err != nil && !(errors.Is(err, logic.ErrInsufficientData) && res != nil) {
		return err
	}
	if err != nil {
		sugar.Warnw("Win probabilities unavailable, nothing to classify", "error", err, "impact_rows", len(res.Impact))
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := WriteScoredCSV(out, res.Scored); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	who := *player
	if who == "" {
		who = cfg.FocusPlayer
	}
	if *reportPath != "" {
		rep := logic.BuildReport(res.Scored, who, cfg.ReportTopN)
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	for _, l := range res.Luck {
		if who != "" && l.PlayerID != who {
			continue
		}
		sugar.Infow("Luck",
			"player_id", l.PlayerID,
			"games", l.Games,
			"actual_wins", l.ActualWins,
			"expected_wins", fmt.Sprintf("%.2f", l.ExpectedWins),
			"luck_diff", fmt.Sprintf("%.2f", l.LuckDiff),
			"label", l.Label,
		)
	}
	return nil
}

func loadInput(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (models.PipelineInput, error) {
	var in models.PipelineInput
	needDB := *fromDB || *saveDB
	if needDB && cfg.PostgresURL == "" {
		return in, errors.New("POSTGRES_URL is required with -from-db or -save")
	}

	var records *store.RecordStore
	if needDB {
		pool, err := store.Connect(ctx, cfg.PostgresURL, int32(cfg.PostgresMaxConns), int32(cfg.PostgresMinConns))
		if err != nil {
			return in, err
		}
		defer pool.Close()
		records = store.NewRecordStore(pool)
		if err := records.Migrate(ctx); err != nil {
			return in, err
		}
	}

	if *fromDB {
		f := store.Filter{}
		for _, id := range strings.Split(*matchIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.MatchIDs = append(f.MatchIDs, id)
			}
		}
		return records.Load(ctx, f)
	}

	in, warnings, err := riot.LoadDumps(ctx, *rawDir, *timelineDir)
	if err != nil {
		return in, err
	}
	for _, w := range warnings {
		sugar.Warnw("Dump skipped or incomplete", "error", w)
	}

	if *saveDB {
		n, err := records.Save(ctx, in)
		if err != nil {
			return in, fmt.Errorf("save records: %w", err)
		}
		sugar.Infow("Records saved", "rows", n)
	}
	return in, nil
}
