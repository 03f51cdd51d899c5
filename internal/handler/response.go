package handler

import "github.com/actuallystonmai/feed-recommender/internal/domain"

type RecommendationResponse struct {
	UserID          int64                     `json:"user_id"`
	Recommendations []domain.ItemDescriptor   `json:"recommendations"`
	Metadata        domain.RecommendationMeta `json:"metadata"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
	Users  int    `json:"users"`
	Model  string `json:"model"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
