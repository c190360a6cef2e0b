package httpapi

import (
	"time"

	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/services"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,alphanum,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Username  string    `json:"username"`
	Session   string    `json:"session"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CalcAuthRequest struct {
	Username string `json:"username" validate:"required"`
	CalcKey  string `json:"calc_key" validate:"required"`
}

type CalcAuthResponse struct {
	AuthSuccess  bool   `json:"auth_success"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token"`
}

type SessionAuthRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

type ValidityCheckRequest struct {
	Username     string `json:"username" validate:"required"`
	SessionToken string `json:"session_token" validate:"required"`
}

type ProfileResponse struct {
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Bio        string     `json:"bio"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

func newProfileResponse(u *models.Identity) ProfileResponse {
	return ProfileResponse{
		Username:   u.UserName,
		Email:      u.Email,
		Bio:        u.Bio,
		DateJoined: u.DateJoined,
		LastLogin:  u.LastLogin,
	}
}

type RootResponse struct {
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	Version    string    `json:"version"`
	ServerTime time.Time `json:"server_time"`
	YourIP     string    `json:"your_ip"`
}

type AuditEntryResponse struct {
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

type FileOutcome struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

type UploadResponse struct {
	Files []FileOutcome `json:"files"`
}

func newUploadResponse(outcomes []services.UploadOutcome) UploadResponse {
	out := UploadResponse{Files: make([]FileOutcome, 0, len(outcomes))}
	for _, o := range outcomes {
		out.Files = append(out.Files, FileOutcome{Success: o.Success, Message: o.Message, Filename: o.FileName})
	}
	return out
}

type DeleteFilesRequest struct {
	Filenames []string `json:"filenames" validate:"required,min=1"`
}

type DeleteFilesResponse struct {
	Success       bool     `json:"success"`
	DeletedFiles  []string `json:"deleted_files"`
	NotFoundFiles []string `json:"not_found_files"`
}

type UsageResponse struct {
	Success    bool    `json:"success"`
	UsedBytes  int64   `json:"used_bytes"`
	UsedMiB    float64 `json:"used_mib"`
	QuotaBytes int64   `json:"quota_bytes"`
}

type CreateAppRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type AppResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Key         string    `json:"key"`
	Expires     int       `json:"expires"`
	LastUsed    time.Time `json:"last_used"`
	Expired     bool      `json:"expired"`
}

func newAppResponse(a *models.AppAPIKey) AppResponse {
	return AppResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Key:         a.Key,
		Expires:     a.Expires,
		LastUsed:    a.LastUsed,
		Expired:     a.Expired,
	}
}

type GrantResponse struct {
	AppID          int64     `json:"appid"`
	AppName        string    `json:"app_name"`
	AppDescription string    `json:"app_description"`
	GrantedDate    time.Time `json:"granted_date"`
}

type GrantPromptResponse struct {
	Success        bool   `json:"success"`
	AppID          int64  `json:"appid"`
	AppName        string `json:"app_name"`
	AppDescription string `json:"app_description"`
	AlreadyGranted bool   `json:"already_granted"`
}

type GrantConfirmRequest struct {
	Password string `json:"password" validate:"required"`
}

type GrantConfirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	AppID   int64  `json:"appid"`
}

type CreateLeaderboardRequest struct {
	Title       string `json:"title" validate:"max=20"`
	Description string `json:"description" validate:"max=100"`
}

type LeaderboardResponse struct {
	ID          int64                      `json:"id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	AppID       *int64                     `json:"app_id"`
	Entries     []LeaderboardEntryResponse `json:"entries,omitempty"`
}

type LeaderboardEntryResponse struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

func newLeaderboardResponse(lb *models.Leaderboard, entries []models.LeaderboardEntry) LeaderboardResponse {
	out := LeaderboardResponse{
		ID:          lb.ID,
		Title:       lb.Title,
		Description: lb.Description,
		AppID:       lb.AppID,
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, LeaderboardEntryResponse{Username: e.UserName, Score: e.Score})
	}
	return out
}

type ScoreRequest struct {
	LeaderboardID int64  `json:"leaderboard_id" validate:"required"`
	Username      string `json:"username" validate:"required"`
	Count         *int64 `json:"count" validate:"required"`
}

type ScoreResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Score   int64  `json:"score"`
}

type DeleteEntryRequest struct {
	LeaderboardID int64  `json:"leaderboard_id" validate:"required"`
	Username      string `json:"username" validate:"required"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
