package handlers

import (
	"net/http"

	"outfitstudio/internal/domain"
)

type feedbackRequest struct {
	RecommendationID string              `json:"recommendation_id"`
	IsLiked          *bool               `json:"is_liked"`
	Reason           string              `json:"reason"`
	OutfitItems      []domain.OutfitItem `json:"outfit_items"`
	Weather          *domain.Weather     `json:"weather"`
}

func (a *App) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req feedbackRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.IsLiked == nil {
		a.error(w, r, http.StatusBadRequest, "validation_failed", "is_liked is required")
		return
	}

	res, err := a.Prefs.RecordFeedback(r.Context(), domain.FeedbackEvent{
		UserID:           userID,
		RecommendationID: req.RecommendationID,
		IsLiked:          *req.IsLiked,
		Reason:           req.Reason,
		OutfitItems:      req.OutfitItems,
		Weather:          req.Weather,
	})
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res)
}

func (a *App) Preferences(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	prefs, err := a.Prefs.GetUserPreferences(r.Context(), userID)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	if prefs.Colors == nil {
		prefs.Colors = []string{}
	}
	if prefs.Styles == nil {
		prefs.Styles = []string{}
	}
	if prefs.Materials == nil {
		prefs.Materials = []string{}
	}
	a.json(w, http.StatusOK, prefs)
}
