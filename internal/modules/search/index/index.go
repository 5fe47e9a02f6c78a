package index

import (
	"context"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
)

// Index wraps a Bleve full-text index over post text. Documents are keyed
// by the post's (channel id, message id) doc id, so re-indexing a replayed
// post is a no-op update.
type Index struct {
	idx bleve.Index
}

type indexedPost struct {
	ChannelID    string
	Text         string
	ChannelTitle string
}

// Hit is a ranked match from the index.
type Hit struct {
	Key   domain.Key
	Score float64
}

// Open opens an existing index or creates a new one at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, oops.With("index_path", path, "context", "create index").Wrap(err)
		}
	} else if err != nil {
		return nil, oops.With("index_path", path, "context", "open index").Wrap(err)
	}

	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping := bleve.NewTextFieldMapping()

	// Channel id is only for revoke-time purging; keep it out of the
	// composite field so searching for a number never matches it.
	channelFieldMapping := bleve.NewKeywordFieldMapping()
	channelFieldMapping.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Text", textFieldMapping)
	docMapping.AddFieldMappingsAt("ChannelTitle", titleFieldMapping)
	docMapping.AddFieldMappingsAt("ChannelID", channelFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func (i *Index) Close() error {
	return i.idx.Close()
}

// IndexPost adds or updates a post in the index.
func (i *Index) IndexPost(post *domain.Post) error {
	doc := indexedPost{
		ChannelID:    strconv.FormatInt(post.ChannelID, 10),
		Text:         post.Text,
		ChannelTitle: post.ChannelTitle,
	}
	if err := i.idx.Index(post.Key().DocID(), doc); err != nil {
		return oops.With("doc_id", post.Key().DocID()).Wrap(err)
	}
	return nil
}

// Query runs an AND query over the tokens and returns up to size ranked
// hits. An empty token set returns no hits.
func (i *Index) Query(ctx context.Context, tokens []string, size int) ([]Hit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	// Conjunction of per-token match queries: every token must match the
	// post text or its channel title.
	conjuncts := lo.Map(tokens, func(token string, _ int) query.Query {
		return bleve.NewMatchQuery(token)
	})
	q := bleve.NewConjunctionQuery(conjuncts...)

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, oops.With("tokens", tokens, "context", "search").Wrap(err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		key, err := domain.ParseDocID(hit.ID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Key: key, Score: hit.Score})
	}

	return hits, nil
}

// DeleteChannel removes every indexed post of a channel, used by the
// purge-on-revoke policy.
func (i *Index) DeleteChannel(ctx context.Context, channelID int64) error {
	term := bleve.NewTermQuery(strconv.FormatInt(channelID, 10))
	term.SetField("ChannelID")

	for {
		req := bleve.NewSearchRequestOptions(term, 1000, 0, false)
		res, err := i.idx.SearchInContext(ctx, req)
		if err != nil {
			return oops.With("channel_id", channelID).Wrap(err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := i.idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.idx.Batch(batch); err != nil {
			return oops.With("channel_id", channelID).Wrap(err)
		}
	}
}

// Count returns the number of indexed posts.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}
