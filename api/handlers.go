package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/recall"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// ErrorResponse is the JSON error envelope for all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExtractRequest is the body for POST /sessions/:id/extract and
// /sessions/:id/backfill. Turns are supplied by the host platform; the core
// never stores raw conversation text.
type ExtractRequest struct {
	Turns         []session.Turn    `json:"turns"`
	TurnIDs       []int             `json:"turn_ids,omitempty"`
	CharacterName string            `json:"character_name,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	Descriptions  []string          `json:"descriptions,omitempty"`
	Settings      *session.Settings `json:"per_chat_settings,omitempty"`
}

// RecallRequest is the body for POST /sessions/:id/recall.
type RecallRequest struct {
	Viewer           string   `json:"viewer"`
	RecentText       string   `json:"recent_text,omitempty"`
	ActiveCharacters []string `json:"active_characters,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus returns the most recent pipeline lifecycle state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(map[string]any{
		"status": s.status.Load(),
	})
}

// handleListSessions returns the ids of all stored sessions.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	ids, err := s.store.Sessions(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	return c.JSON(map[string]any{
		"count":    len(ids),
		"sessions": ids,
	})
}

// handleListMemories returns a session's stored events and derived state.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	snap, err := s.store.Load(c.Context(), sessionID)
	if err != nil {
		if _, ok := err.(storage.ErrNotFound); ok {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load session"})
	}

	return c.JSON(map[string]any{
		"memories":         snap.Memories,
		"character_states": snap.CharacterStates,
		"relationships":    snap.Relationships,
	})
}

// handleExtract runs one extraction cycle over the supplied turns.
func (s *Server) handleExtract(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Turns) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "turns required"})
	}

	result, err := s.extractor.Run(c.Context(), extract.Batch{
		SessionID:     sessionID,
		Turns:         req.Turns,
		TurnIDs:       req.TurnIDs,
		CharacterName: req.CharacterName,
		UserName:      req.UserName,
		Descriptions:  req.Descriptions,
		Settings:      req.Settings,
	})
	if err != nil {
		s.logger.Warn("extraction failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if _, ok := err.(extract.ConfigurationError); ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "extraction failed"})
	}

	return c.JSON(result)
}

// handleBackfill backfills the session's backlog of unextracted turns.
func (s *Server) handleBackfill(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Turns) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "turns required"})
	}

	result, err := s.scheduler.Run(c.Context(), extract.Batch{
		SessionID:     sessionID,
		Turns:         req.Turns,
		CharacterName: req.CharacterName,
		UserName:      req.UserName,
		Descriptions:  req.Descriptions,
		Settings:      req.Settings,
	})
	if err != nil {
		s.logger.Warn("backfill failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "backfill failed"})
	}

	return c.JSON(result)
}

// handleRecall builds the injectable context block for a viewer.
func (s *Server) handleRecall(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req RecallRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Viewer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "viewer required"})
	}

	resp, err := s.retriever.Retrieve(c.Context(), recall.Request{
		SessionID:        sessionID,
		Viewer:           req.Viewer,
		RecentText:       req.RecentText,
		ActiveCharacters: req.ActiveCharacters,
	})
	if err != nil {
		s.logger.Warn("recall failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "recall failed"})
	}

	return c.JSON(resp)
}

// handleUpdateSettings replaces a session's per-chat settings. The session
// is created if it has no stored state yet, so settings can be configured
// ahead of the first extraction.
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var settings session.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	snap, err := storage.LoadOrInit(c.Context(), s.store, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load session"})
	}

	snap.Settings = settings
	if err := s.store.Save(c.Context(), sessionID, snap); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save session"})
	}

	return c.JSON(snap.Settings)
}

// handleDeleteSession removes all stored state for a session.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	if err := s.store.Delete(c.Context(), sessionID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete session"})
	}

	return c.JSON(map[string]any{"deleted": sessionID})
}
