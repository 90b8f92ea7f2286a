package service

import (
	"context"
	"strings"

	"portal/internal/repository"
)

const searchPerKind = 50

type SearchResponse struct {
	Query string                 `json:"query"`
	Hits  []repository.SearchHit `json:"hits"`
}

type SearchService interface {
	// Search splits q on whitespace and returns hits grouped by kind.
	Search(ctx context.Context, p Principal, q string) (*SearchResponse, error)
}

type searchService struct {
	repo repository.SearchRepository
}

func NewSearchService(repo repository.SearchRepository) SearchService {
	return &searchService{repo: repo}
}

func (s *searchService) Search(ctx context.Context, p Principal, q string) (*SearchResponse, error) {
	res := &SearchResponse{Query: q, Hits: []repository.SearchHit{}}
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return res, nil
	}
	hits, err := s.repo.Search(ctx, terms, p.ownerScope(), searchPerKind)
	if err != nil {
		return nil, err
	}
	if hits != nil {
		res.Hits = hits
	}
	return res, nil
}
