package dto

import "github.com/frankbauer/media-rest-api/internal/pkg/pagination"

type PaginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

func NewPaginationResponse(s pagination.Summary) PaginationResponse {
	return PaginationResponse{
		CurrentPage: s.CurrentPage,
		TotalPages:  s.TotalPages,
		TotalCount:  s.TotalCount,
		HasNext:     s.HasNext,
		HasPrev:     s.HasPrev,
	}
}
