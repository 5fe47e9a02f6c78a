package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sloghttp "github.com/samber/slog-http"

	feedService "github.com/khaingmyozaw/file-search-bot/internal/modules/feed/service"
	searchService "github.com/khaingmyozaw/file-search-bot/internal/modules/search/service"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/config"
	apperrors "github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

// Server exposes the search index over HTTP: a JSON search endpoint, a
// per-channel RSS feed, and a health check.
type Server struct {
	cfg           *config.Config
	feedService   *feedService.Service
	searchService *searchService.Service
	logger        *slog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, feedService *feedService.Service, searchService *searchService.Service) *Server {
	return &Server{
		cfg:           cfg,
		feedService:   feedService,
		searchService: searchService,
		logger:        slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /feed/{channelID}", s.handleFeed)
	mux.HandleFunc("GET /health", s.handleHealth)

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

type searchResult struct {
	ChannelID    int64     `json:"channel_id"`
	MessageID    int64     `json:"message_id"`
	ChannelTitle string    `json:"channel_title"`
	Text         string    `json:"text"`
	Link         string    `json:"link,omitempty"`
	Score        float64   `json:"score"`
	PostedAt     time.Time `json:"posted_at"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "Query parameter q is required", http.StatusBadRequest)
		return
	}

	results, err := s.searchService.Search(r.Context(), query, s.cfg.MaxResults)
	if err != nil {
		s.logger.Error("Search failed", "query", query, "error", err)
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	response := searchResponse{Query: query, Results: make([]searchResult, 0, len(results))}
	for _, result := range results {
		response.Results = append(response.Results, searchResult{
			ChannelID:    result.Post.ChannelID,
			MessageID:    result.Post.MessageID,
			ChannelTitle: result.Post.ChannelTitle,
			Text:         result.Post.Text,
			Link:         result.Post.Link(),
			Score:        result.Score,
			PostedAt:     result.Post.PostedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error encoding search response", "error", err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	channelID, err := config.ParseUserID(r.PathValue("channelID"))
	if err != nil {
		http.Error(w, "Channel ID must be a number", http.StatusBadRequest)
		return
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feedService.GenerateFeed(r.Context(), channelID, baseURL)
	if err != nil {
		if errors.Is(err, apperrors.ErrChannelNotFound) {
			http.Error(w, "Channel not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Error generating feed", "channel_id", channelID, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300") // Cache for 5 minutes
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
