package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/search/index"
)

const (
	storageTimeout = 5 * time.Second

	// Fetch more hits than the reply can hold so the recency tiebreak is
	// applied across the whole equal-score band, not just the first page.
	overFetchFactor = 5

	// Bleve scores are floats; hits this close count as tied and fall
	// through to the recency comparison.
	scoreEpsilon = 1e-9
)

// Result is one ranked search hit, hydrated from the store.
type Result struct {
	Post  *postDomain.Post
	Score float64
}

// Service answers keyword queries against the index, most relevant first.
type Service struct {
	idx   *index.Index
	posts postRepo.Repository
}

func New(idx *index.Index, posts postRepo.Repository) *Service {
	return &Service{idx: idx, posts: posts}
}

// Search tokenizes the query, requires every token to match, and returns
// up to limit results ordered by relevance with recency breaking ties.
// A query with no usable tokens returns an empty result, not an error.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	tokens := index.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	hits, err := s.idx.Query(ctx, tokens, limit*overFetchFactor)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	scores := make(map[postDomain.Key]float64, len(hits))
	for _, hit := range hits {
		scores[hit.Key] = hit.Score
	}

	keys := lo.Map(hits, func(hit index.Hit, _ int) postDomain.Key {
		return hit.Key
	})
	posts, err := s.posts.GetByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	results := lo.Map(posts, func(post *postDomain.Post, _ int) Result {
		return Result{Post: post, Score: scores[post.Key()]}
	})

	sort.SliceStable(results, func(a, b int) bool {
		if math.Abs(results[a].Score-results[b].Score) > scoreEpsilon {
			return results[a].Score > results[b].Score
		}
		return results[a].Post.PostedAt.After(results[b].Post.PostedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
