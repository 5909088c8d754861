package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"walottery/models"
	"walottery/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LotteryService defines the sync operations the endpoint exposes
type LotteryService interface {
	ListLotteries(ctx context.Context) ([]*models.LotteryMirror, error)
	SyncLottery(ctx context.Context, lotteryID, txDigest string, eventSeq int64) error
}

// LotteryHandler serves the lottery sync endpoint
type LotteryHandler struct {
	service LotteryService
}

// NewLotteryHandler creates a new lottery handler
func NewLotteryHandler(service LotteryService) *LotteryHandler {
	return &LotteryHandler{service: service}
}

// lotteryResponse is the wire shape of a mirror row, field names matching
// the stored columns.
type lotteryResponse struct {
	LotteryID       string          `json:"lottery_id"`
	Creator         string          `json:"creator"`
	DeadlineMs      int64           `json:"deadline_ms"`
	TotalPrizeUnits int64           `json:"total_prize_units"`
	TxDigest        string          `json:"tx_digest"`
	EventSeq        int64           `json:"event_seq"`
	EmittedAt       time.Time       `json:"emitted_at"`
	RawEvent        json.RawMessage `json:"raw_event"`
}

type syncRequest struct {
	LotteryID string `json:"lotteryId"`
	TxDigest  string `json:"txDigest"`
	EventSeq  int64  `json:"eventSeq"`
}

// ListLotteries handles GET /lotteries
func (h *LotteryHandler) ListLotteries(c *gin.Context) {
	lotteries, err := h.service.ListLotteries(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list lotteries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	response := make([]lotteryResponse, 0, len(lotteries))
	for _, lottery := range lotteries {
		response = append(response, lotteryResponse{
			LotteryID:       lottery.LotteryID,
			Creator:         lottery.Creator,
			DeadlineMs:      lottery.DeadlineMs,
			TotalPrizeUnits: lottery.TotalPrizeUnits,
			TxDigest:        lottery.TxDigest,
			EventSeq:        lottery.EventSeq,
			EmittedAt:       lottery.EmittedAt,
			RawEvent:        lottery.RawEvent,
		})
	}

	c.JSON(http.StatusOK, response)
}

// SyncLottery handles POST /lotteries
func (h *LotteryHandler) SyncLottery(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LotteryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lotteryId is required"})
		return
	}

	err := h.service.SyncLottery(c.Request.Context(), req.LotteryID, req.TxDigest, req.EventSeq)
	if errors.Is(err, service.ErrLotteryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lottery not found on-chain"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("lotteryID", req.LotteryID).Error("Failed to sync lottery")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
