package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/posture"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/service/tracker"
)

// Handler wires HTTP routes to the tracker service.
type Handler struct {
	tracker *tracker.Service
}

// NewHandler constructs a Handler instance.
func NewHandler(service *tracker.Service) *Handler {
	return &Handler{tracker: service}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/sessions", h.startSession)
	api.POST("/sessions/:id/end", h.endSession)
	api.GET("/sessions/active", h.activeSession)
	api.POST("/readings", h.recordReading)
	api.GET("/readings", h.listReadings)
	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.updateSettings)
	api.GET("/users/:id", h.getUser)
	api.PUT("/users/:id", h.updateUser)
	api.GET("/dashboard", h.dashboard)
}

type startSessionRequest struct {
	UserID      int64 `json:"userId"`
	GoalMinutes int   `json:"goalMinutes"`
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid positive numeric userId is required"})
		return
	}
	if req.GoalMinutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goalMinutes must be greater than zero"})
		return
	}
	session, err := h.tracker.StartSession(c.Request.Context(), req.UserID, req.GoalMinutes)
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrSessionActive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, sql.ErrNoRows):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			log.Printf("start session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "sessionId": session.ID})
}

type endSessionRequest struct {
	FocusedPerc  *float64 `json:"focusedPerc"`
	AwayPerc     *float64 `json:"awayPerc"`
	PostureScore *string  `json:"postureScore"`
}

func (h *Handler) endSession(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	session, err := h.tracker.EndSession(c.Request.Context(), sessionID, req.FocusedPerc, req.AwayPerc, req.PostureScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("end session %d: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (h *Handler) activeSession(c *gin.Context) {
	userID, ok := queryID(c, "userId")
	if !ok {
		return
	}
	session, err := h.tracker.ActiveSession(c.Request.Context(), userID)
	if err != nil {
		log.Printf("find active session for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hasActiveSession": session != nil,
		"session":          session,
	})
}

type readingRequest struct {
	UserID     int64               `json:"userId"`
	Distance   *float64            `json:"distance"`
	Thresholds *posture.Thresholds `json:"thresholds"`
}

func (h *Handler) recordReading(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid positive numeric userId is required"})
		return
	}
	if req.Distance == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "distance is required"})
		return
	}
	_, err := h.tracker.RecordReading(c.Request.Context(), req.UserID, *req.Distance, req.Thresholds)
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrNoActiveSession):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, sql.ErrNoRows):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user"})
		default:
			log.Printf("record reading for user %d: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listReadings(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Query("sessionId"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	readings, err := h.tracker.ListReadings(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("list readings for session %d: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if readings == nil {
		readings = make([]models.Reading, 0)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": readings})
}

func (h *Handler) getSettings(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a valid positive numeric userId is required"})
		return
	}
	settings, err := h.tracker.GetSettings(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": fmt.Sprintf("User with id %d was not found", userID)})
			return
		}
		log.Printf("get settings for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}

func (h *Handler) updateSettings(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a valid positive numeric userId is required"})
		return
	}
	var pair posture.Thresholds
	if err := c.ShouldBindJSON(&pair); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "request body must include isTooClose and isNotSitting values"})
		return
	}
	if err := pair.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	settings, err := h.tracker.UpdateSettings(c.Request.Context(), userID, pair)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": fmt.Sprintf("User with id %d was not found", userID)})
			return
		}
		log.Printf("update settings for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}

func settingsResponse(settings *models.UserSettings) gin.H {
	return gin.H{
		"success": true,
		"data": gin.H{
			"userId":       settings.UserID,
			"isTooClose":   settings.IsTooClose,
			"isNotSitting": settings.IsNotSitting,
			"savedAt":      settings.UpdatedAt,
		},
	}
}

func (h *Handler) getUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	user, err := h.tracker.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("get user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) updateUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.tracker.UpdateUser(c.Request.Context(), userID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("update user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) dashboard(c *gin.Context) {
	userID, ok := queryID(c, "userId")
	if !ok {
		return
	}
	summary, err := h.tracker.Dashboard(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("dashboard for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("a valid positive numeric %s is required", name)})
		return 0, false
	}
	return id, true
}
