package models

import (
	"encoding/json"
	"testing"
)

func TestFlexUnmarshal_AllStrings(t *testing.T) {
	input := `[{"match_id": "NA1_5012", "player_id": "puuid-7", "team_id": "100", "role": "UTILITY", "kills": "3", "deaths": "5", "assists": "4", "team_kills": "10", "damage_dealt": "8000.0", "team_damage": "20000", "creep_score": "80", "vision_score": "41.5", "game_duration_minutes": "20.0", "win": "true"}]`

	var records []PlayerGameRecord
	if err := json.Unmarshal([]byte(input), &records); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.TeamID != 100 {
		t.Errorf("TeamID = %d, want 100", r.TeamID)
	}
	if r.Kills != 3 || r.Assists != 4 || r.TeamKills != 10 {
		t.Errorf("kills/assists/team_kills = %d/%d/%d, want 3/4/10", r.Kills, r.Assists, r.TeamKills)
	}
	if r.DamageDealt != 8000 {
		t.Errorf("DamageDealt = %f, want 8000", r.DamageDealt)
	}
	if r.VisionScore != 41.5 {
		t.Errorf("VisionScore = %f, want 41.5", r.VisionScore)
	}
	if !r.Win {
		t.Error("Win = false, want true")
	}
	if r.Role != "UTILITY" {
		t.Errorf("Role = %q, want UTILITY", r.Role)
	}
}

func TestFlexUnmarshal_NativeTypes(t *testing.T) {
	input := `{"match_id": "NA1_1", "player_id": "p", "team_id": 200, "kills": 7, "damage_dealt": 112.487, "win": false}`

	var r PlayerGameRecord
	if err := json.Unmarshal([]byte(input), &r); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if r.DamageDealt != 112.487 {
		t.Errorf("DamageDealt = %f, want 112.487", r.DamageDealt)
	}
	if r.TeamID != 200 || r.Kills != 7 {
		t.Errorf("TeamID/Kills = %d/%d, want 200/7", r.TeamID, r.Kills)
	}
}

func TestFlexUnmarshal_OptionalSnapshotCounts(t *testing.T) {
	input := `{"match_id": "NA1_1", "team_id": "100", "gold": "16500", "dragon_kills": "1"}`

	var s TimelineSnapshot10
	if err := json.Unmarshal([]byte(input), &s); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if s.Gold != 16500 {
		t.Errorf("Gold = %d, want 16500", s.Gold)
	}
	if s.DragonKills == nil || *s.DragonKills != 1 {
		t.Errorf("DragonKills = %v, want 1", s.DragonKills)
	}
	if s.LanePlates != nil {
		t.Errorf("LanePlates = %v, want nil", *s.LanePlates)
	}
}

func TestFlexUnmarshal_BadNumber(t *testing.T) {
	input := `{"match_id": "NA1_1", "kills": "many"}`

	var r PlayerGameRecord
	if err := json.Unmarshal([]byte(input), &r); err == nil {
		t.Fatal("expected error for non-numeric kills")
	}
}
