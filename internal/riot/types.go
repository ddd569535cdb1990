package riot

// MatchResponse is the body of /lol/match/v5/matches/{matchId}.
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation int64              `json:"gameCreation"`
	GameDuration int                `json:"gameDuration"` // seconds
	GameVersion  string             `json:"gameVersion"`
	QueueID      int                `json:"queueId"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	ParticipantID               int    `json:"participantId"`
	PUUID                       string `json:"puuid"`
	SummonerName                string `json:"summonerName"`
	RiotIdGameName              string `json:"riotIdGameName"`
	RiotIdTagline               string `json:"riotIdTagline"`
	TeamID                      int    `json:"teamId"`
	ChampionName                string `json:"championName"`
	TeamPosition                string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win                         bool   `json:"win"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
	GoldEarned                  int    `json:"goldEarned"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	VisionScore                 int    `json:"visionScore"`
}

// TimelineResponse is the body of /lol/match/v5/matches/{matchId}/timeline.
type TimelineResponse struct {
	Metadata TimelineMetadata `json:"metadata"`
	Info     TimelineInfo     `json:"info"`
}

type TimelineMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type TimelineInfo struct {
	FrameInterval int             `json:"frameInterval"`
	Frames        []TimelineFrame `json:"frames"`
}

// TimelineFrame is one minute bucket. ParticipantFrames is keyed by
// participant id ("1".."10").
type TimelineFrame struct {
	Timestamp         int                         `json:"timestamp"`
	ParticipantFrames map[string]ParticipantFrame `json:"participantFrames"`
	Events            []TimelineEvent             `json:"events"`
}

type ParticipantFrame struct {
	ParticipantID       int `json:"participantId"`
	TotalGold           int `json:"totalGold"`
	XP                  int `json:"xp"`
	MinionsKilled       int `json:"minionsKilled"`
	JungleMinionsKilled int `json:"jungleMinionsKilled"`
}

type TimelineEvent struct {
	Type          string `json:"type"`
	Timestamp     int    `json:"timestamp"`
	ParticipantID int    `json:"participantId,omitempty"`
	KillerID      int    `json:"killerId,omitempty"`
	KillerTeamID  int    `json:"killerTeamId,omitempty"`
	TeamID        int    `json:"teamId,omitempty"` // for plates, the team that lost the plate
	MonsterType   string `json:"monsterType,omitempty"`
}

const (
	EventChampionKill   = "CHAMPION_KILL"
	EventEliteMonster   = "ELITE_MONSTER_KILL"
	EventPlateDestroyed = "TURRET_PLATE_DESTROYED"
	MonsterDragon       = "DRAGON"
)
