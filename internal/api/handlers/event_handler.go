package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"auction-relay/internal/domain"
	"auction-relay/internal/services"
	"auction-relay/pkg/logger"
)

type EventService interface {
	AcceptEvent(ctx context.Context, msg *domain.BidBroadcastMessage) (*domain.ArchivedEvent, error)
	ListEvents(ctx context.Context, auctionID string, limit int) ([]*domain.ArchivedEvent, error)
	LatestEvent(ctx context.Context, auctionID string) (*domain.BidBroadcastMessage, error)
}

type EventHandler struct {
	service EventService
	log     logger.Logger
}

type AcceptEventRequest struct {
	Type      domain.BroadcastType `json:"type"`
	Data      json.RawMessage      `json:"data"`
	Timestamp string               `json:"timestamp"`
}

type ListEventsResponse struct {
	AuctionID string                  `json:"auctionId"`
	Events    []*domain.ArchivedEvent `json:"events"`
}

func NewEventHandler(service EventService, log logger.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		log:     log,
	}
}

// Register mounts the event routes on g.
func (h *EventHandler) Register(g *echo.Group) {
	g.POST("/auctions/:id/events", h.AcceptEvent)
	g.GET("/auctions/:id/events", h.ListEvents)
	g.GET("/auctions/:id/events/latest", h.LatestEvent)
}

func (h *EventHandler) AcceptEvent(c echo.Context) error {
	auctionID := c.Param("id")

	var req AcceptEventRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	event, err := h.service.AcceptEvent(c.Request().Context(), &domain.BidBroadcastMessage{
		Type:      req.Type,
		AuctionID: auctionID,
		Data:      req.Data,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidEvent) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to accept event", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to accept event"})
	}

	return c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	auctionID := c.Param("id")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	events, err := h.service.ListEvents(c.Request().Context(), auctionID, limit)
	if err != nil {
		h.log.Error("Failed to list events", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list events"})
	}
	if events == nil {
		events = []*domain.ArchivedEvent{}
	}

	return c.JSON(http.StatusOK, ListEventsResponse{AuctionID: auctionID, Events: events})
}

func (h *EventHandler) LatestEvent(c echo.Context) error {
	auctionID := c.Param("id")

	msg, err := h.service.LatestEvent(c.Request().Context(), auctionID)
	if err != nil {
		h.log.Error("Failed to load latest event", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load latest event"})
	}
	if msg == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No events for auction"})
	}

	return c.JSON(http.StatusOK, msg)
}
