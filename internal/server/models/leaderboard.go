package models

// Leaderboard defaults and column limits.
const (
	DefaultLeaderboardTitle       = "No title"
	DefaultLeaderboardDescription = "No description"
	MaxLeaderboardTitle           = 20
	MaxLeaderboardDescription     = 100
)

// Leaderboard is owned by exactly one app key.
type Leaderboard struct {
	ID          int64
	Title       string
	Description string
	AppID       *int64
}

// OwnedByApp reports whether appID owns the leaderboard.
func (l *Leaderboard) OwnedByApp(appID int64) bool {
	return l.AppID != nil && *l.AppID == appID
}

// LeaderboardEntry is the score of one user on one leaderboard.
// (UserID, LeaderboardID) is unique.
type LeaderboardEntry struct {
	ID            int64
	UserID        int64
	LeaderboardID int64
	Score         int64

	// Populated by listing queries.
	UserName string
}
