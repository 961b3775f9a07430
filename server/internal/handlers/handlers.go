package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"

	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/server/internal/auth"
	"github.com/spilist/tokscale/server/internal/database"
)

// Handlers holds the API handler dependencies.
type Handlers struct {
	db          *database.DB
	sessionMgr  *scs.SessionManager
	logger      *zap.Logger
	leaderboard *LeaderboardCache
}

// New creates HTTP handlers backed by the given database.
func New(db *database.DB, sessionMgr *scs.SessionManager, logger *zap.Logger) *Handlers {
	return &Handlers{
		db:          db,
		sessionMgr:  sessionMgr,
		logger:      logger,
		leaderboard: NewLeaderboardCache(db, logger, 5*time.Second),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c credentials) validate() string {
	if len(c.Username) < 3 || len(c.Username) > 32 {
		return "username must be 3-32 characters"
	}
	if len(c.Password) < 8 {
		return "password must be at least 8 characters"
	}
	return ""
}

// Register handles POST /api/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := creds.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if existing, err := h.db.GetUserByUsername(creds.Username); err != nil {
		h.logger.Error("register lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		h.logger.Error("password hash failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	id, err := auth.GenerateID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &database.User{
		ID:           id,
		Username:     creds.Username,
		PasswordHash: hash,
		APIKey:       apiKey,
	}
	if err := h.db.CreateUser(user); err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.sessionMgr.Put(r.Context(), "userID", user.ID)
	h.logger.Info("user registered", zap.String("username", user.Username))

	writeJSON(w, http.StatusCreated, map[string]string{
		"userId":   user.ID,
		"username": user.Username,
		"apiKey":   user.APIKey,
	})
}

// Login handles POST /api/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.db.GetUserByUsername(creds.Username)
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !auth.CheckPassword(creds.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := h.sessionMgr.RenewToken(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.sessionMgr.Put(r.Context(), "userID", user.ID)

	writeJSON(w, http.StatusOK, map[string]string{
		"userId":   user.ID,
		"username": user.Username,
	})
}

// Logout handles POST /api/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionMgr.Destroy(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type submitRequest struct {
	DeviceID   string         `json:"deviceId"`
	DeviceName string         `json:"deviceName,omitempty"`
	Sources    []model.Source `json:"sources"`
	Snapshot   model.Graph    `json:"snapshot"`
}

type submitResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	DaysMerged int    `json:"daysMerged,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Submit handles POST /api/submit. Requires an API key.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, "sources is required")
		return
	}
	for _, s := range req.Sources {
		if !s.Valid() {
			writeError(w, http.StatusBadRequest, "unknown source: "+string(s))
			return
		}
	}
	for _, day := range req.Snapshot.Contributions {
		if day.Date == "" {
			writeError(w, http.StatusBadRequest, "contribution with empty date")
			return
		}
	}

	if _, err := h.db.GetOrCreateDevice(user.ID, req.DeviceID, req.DeviceName); err != nil {
		h.logger.Error("device lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	merged, err := h.db.ApplySnapshot(user.ID, req.DeviceID, req.Sources, req.Snapshot)
	if err != nil {
		h.logger.Error("snapshot merge failed",
			zap.String("user", user.Username),
			zap.String("device", req.DeviceID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.db.UpdateDeviceLastSubmit(req.DeviceID, time.Now().UTC()); err != nil {
		h.logger.Warn("device timestamp update failed", zap.Error(err))
	}
	h.leaderboard.Invalidate()

	h.logger.Info("snapshot merged",
		zap.String("user", user.Username),
		zap.String("device", req.DeviceID),
		zap.Int("days", merged))

	writeJSON(w, http.StatusOK, submitResponse{
		Success:    true,
		Message:    "snapshot merged",
		DaysMerged: merged,
	})
}

// Leaderboard handles GET /api/leaderboard?since&until&limit.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	until := r.URL.Query().Get("until")
	limit := leaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n < limit {
			limit = n
		}
	}

	var rows []database.LeaderboardRow
	var err error
	if since == "" && until == "" {
		rows, err = h.leaderboard.Top()
	} else {
		rows, err = h.db.Leaderboard(since, until, limit)
	}
	if err != nil {
		h.logger.Error("leaderboard query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": rows,
		"since":       since,
		"until":       until,
	})
}

type profileDay struct {
	Date     string  `json:"date"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
	Messages int     `json:"messages"`
}

// Me handles GET /api/me. Accepts a session or an API key.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cells, err := h.db.GetUserDays(user.ID)
	if err != nil {
		h.logger.Error("profile query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var totalTokens int64
	var totalCost float64
	var totalMessages int
	bySource := map[model.Source]profileDay{}
	byDate := map[string]*profileDay{}
	var days []*profileDay
	for _, c := range cells {
		totalTokens += c.Cell.Tokens
		totalCost += c.Cell.Cost
		totalMessages += c.Cell.Messages

		agg := bySource[c.Source]
		agg.Tokens += c.Cell.Tokens
		agg.Cost += c.Cell.Cost
		agg.Messages += c.Cell.Messages
		bySource[c.Source] = agg

		day := byDate[c.Date]
		if day == nil {
			day = &profileDay{Date: c.Date}
			byDate[c.Date] = day
			days = append(days, day)
		}
		day.Tokens += c.Cell.Tokens
		day.Cost += c.Cell.Cost
		day.Messages += c.Cell.Messages
	}

	sources := map[string]map[string]any{}
	for src, agg := range bySource {
		sources[string(src)] = map[string]any{
			"tokens":   agg.Tokens,
			"cost":     agg.Cost,
			"messages": agg.Messages,
		}
	}
	flat := make([]profileDay, len(days))
	for i, d := range days {
		flat[i] = *d
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":        user.ID,
		"username":      user.Username,
		"totalTokens":   totalTokens,
		"totalCost":     totalCost,
		"totalMessages": totalMessages,
		"activeDays":    len(days),
		"sources":       sources,
		"days":          flat,
	})
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
