// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/campusbus/extrabus/ledger"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/poller"
	"github.com/campusbus/extrabus/threshold"
	"github.com/campusbus/extrabus/topics"
)

type TopicHandler struct {
	topics *topics.Store
	ledger *ledger.Ledger
	eval   *threshold.Evaluator
	poller *poller.Poller
}

func NewTopicHandler(s *Services) *TopicHandler {
	return &TopicHandler{
		topics: s.Topics,
		ledger: s.Ledger,
		eval:   s.Evaluator,
		poller: s.Poller,
	}
}

// Create handles POST /topics
func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req models.CreateTopicRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	var endDate time.Time
	if req.EndDate != nil {
		t, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "end_date must be RFC 3339")
			return
		}
		endDate = t
	}

	created, err := h.topics.Create(r.Context(), topics.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		RequesterID: user.ID,
		Region:      user.Region,
		RouteID:     req.RouteID,
		ScheduleID:  req.ScheduleID,
		BusID:       req.BusID,
		EndDate:     endDate,
		Options:     req.Options,
	})
	if err != nil {
		writeError(w, err, "create topic")
		return
	}
	h.poller.Cache().Invalidate()

	slog.Info("topic created", "topic_id", created.Topic.ID, "requester_id", user.ID, "region", created.Topic.Region)

	middleware.JSONResponse(w, http.StatusCreated, created)
}

// List handles GET /topics?status=. The list is served from the shared
// topic cache after an opportunistic poller pass.
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !topics.ValidStatus(status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown status")
		return
	}

	if _, err := h.poller.Nudge(r.Context()); err != nil {
		slog.Warn("poller nudge failed", "error", err)
	}

	all, err := h.poller.Cache().Get(r.Context(), func(ctx context.Context) ([]models.VotingTopic, error) {
		return h.topics.List(ctx)
	})
	if err != nil {
		writeError(w, err, "list topics")
		return
	}

	list := make([]models.VotingTopic, 0, len(all))
	for _, t := range all {
		if status == "" || t.Status == status {
			list = append(list, t)
		}
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Get handles GET /topics/{id}
func (h *TopicHandler) Get(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("id")

	topic, err := h.topics.Get(r.Context(), topicID)
	if err != nil {
		writeError(w, err, "get topic")
		return
	}
	options, err := h.topics.Options(r.Context(), topicID)
	if err != nil {
		writeError(w, err, "get topic options")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.TopicWithOptions{Topic: topic, Options: options})
}

// CastVote handles POST /topics/{id}/votes. The topic is evaluated right
// after the vote so a vote that crosses the threshold moves it to
// processing in the same request.
func (h *TopicHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	topicID := r.PathValue("id")

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	vote, err := h.ledger.CastVote(r.Context(), topicID, user.ID, req.OptionID)
	if err != nil {
		writeError(w, err, "cast vote")
		return
	}

	outcome, err := h.eval.Evaluate(r.Context(), topicID)
	if err != nil {
		// the vote is stored; the poller will evaluate again
		slog.Error("failed to evaluate topic", "topic_id", topicID, "error", err)
	}
	h.poller.Cache().Invalidate()

	topic, err := h.topics.Get(r.Context(), topicID)
	if err != nil {
		writeError(w, err, "get topic")
		return
	}

	slog.Info("vote cast", "topic_id", topicID, "student_id", user.ID,
		"weighted_votes", topic.WeightedVotes, "outcome", outcome)

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		VoteID:        vote.ID,
		WeightedVotes: topic.WeightedVotes,
		Status:        topic.Status,
	})
}
