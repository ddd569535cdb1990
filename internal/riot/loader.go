package riot

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/riftluck/stats-api/internal/models"
)

// ErrNoTimeline marks a match dump without a timeline dump next to it.
var ErrNoTimeline = errors.New("no timeline dump")

// LoadDumps reads every match dump (*.json or *.json.gz) in rawDir and the
// timeline of the same match id from timelineDir. Problems with a single
// match are returned as warnings; the match is kept without snapshots when
// only its timeline is unusable and skipped when the match dump is.
func LoadDumps(ctx context.Context, rawDir, timelineDir string) (models.PipelineInput, []error, error) {
	var in models.PipelineInput

	paths, err := dumpFiles(rawDir)
	if err != nil {
		return in, nil, err
	}

	var warnings []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return in, warnings, err
		}

		var match MatchResponse
		if err := readJSON(path, &match); err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if match.Metadata.MatchID == "" {
			match.Metadata.MatchID = dumpID(path)
		}
		records, err := match.Records()
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", path, err))
			continue
		}
		in.Records = append(in.Records, records...)

		if timelineDir == "" {
			continue
		}
		snaps, err := loadTimeline(&match, timelineDir)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		in.Snapshots = append(in.Snapshots, snaps...)
	}
	return in, warnings, nil
}

func loadTimeline(match *MatchResponse, dir string) ([]models.TimelineSnapshot10, error) {
	id := match.Metadata.MatchID
	for _, name := range []string{id + ".json", id + ".json.gz"} {
		path := filepath.Join(dir, name)
		var tl TimelineResponse
		err := readJSON(path, &tl)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return Snapshots(match, &tl)
	}
	return nil, fmt.Errorf("match %s: %w", id, ErrNoTimeline)
}

func dumpFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dump dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".json.gz") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func dumpID(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, ".json")
}

func readJSON(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return json.NewDecoder(r).Decode(dst)
}
