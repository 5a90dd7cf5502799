package acquisition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
)

func movieItem() media.Item {
	return media.Item{
		Kind:  media.KindMovie,
		Title: "The Matrix",
		Year:  1999,
		IDs:   media.IDs{Trakt: 481, IMDB: "tt0133093", TMDB: 603},
	}
}

func showItem() media.Item {
	return media.Item{
		Kind:  media.KindShow,
		Title: "Breaking Bad",
		IDs:   media.IDs{Trakt: 1388, TVDB: 81189, TMDB: 1396},
	}
}

func TestOverseerrRequestMovie(t *testing.T) {
	var got struct {
		MediaType string `json:"mediaType"`
		MediaID   int64  `json:"mediaId"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/request" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "secret" {
			t.Errorf("X-Api-Key = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 42})
	}))
	defer server.Close()

	backend := NewOverseerr(config.BackendConfig{URL: server.URL, APIKey: "secret"}, zerolog.Nop())
	result, err := backend.RequestMovie(context.Background(), movieItem(), "alice")
	if err != nil {
		t.Fatalf("RequestMovie: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success", result)
	}
	if result.RequestID != "42" {
		t.Errorf("RequestID = %q, want 42", result.RequestID)
	}
	if got.MediaType != "movie" || got.MediaID != 603 {
		t.Errorf("payload = %+v, want movie/603", got)
	}
}

func TestOverseerrRequestShowSendsSeason(t *testing.T) {
	var got struct {
		MediaType string `json:"mediaType"`
		MediaID   int64  `json:"mediaId"`
		Seasons   []int  `json:"seasons"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 7})
	}))
	defer server.Close()

	backend := NewOverseerr(config.BackendConfig{URL: server.URL}, zerolog.Nop())
	result, err := backend.RequestShow(context.Background(), showItem(), 4, "alice", false)
	if err != nil {
		t.Fatalf("RequestShow: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success", result)
	}
	if got.MediaType != "tv" || got.MediaID != 1396 {
		t.Errorf("payload = %+v", got)
	}
	if len(got.Seasons) != 1 || got.Seasons[0] != 4 {
		t.Errorf("seasons = %v, want [4]", got.Seasons)
	}
}

func TestOverseerrMissingTMDBID(t *testing.T) {
	backend := NewOverseerr(config.BackendConfig{URL: "http://unused"}, zerolog.Nop())
	item := movieItem()
	item.IDs.TMDB = 0

	result, err := backend.RequestMovie(context.Background(), item, "alice")
	if err != nil {
		t.Fatalf("missing ID is a skip, not an error: %v", err)
	}
	if result.Success {
		t.Error("expected failed result without a TMDB ID")
	}
	if result.Message == "" {
		t.Error("expected a user-facing message")
	}
}

func TestOverseerrServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"message": "Request already exists"})
	}))
	defer server.Close()

	backend := NewOverseerr(config.BackendConfig{URL: server.URL}, zerolog.Nop())
	result, err := backend.RequestMovie(context.Background(), movieItem(), "alice")
	if err == nil {
		t.Fatal("expected an error for a rejected request")
	}
	if result.Success {
		t.Error("result must not be success on rejection")
	}
	if result.Message != "Request already exists" {
		t.Errorf("Message = %q, want the upstream message", result.Message)
	}
}

func TestOmbiRequestShowImpersonatesRequester(t *testing.T) {
	var gotUser string
	var got struct {
		TvDbID  int64 `json:"tvDbId"`
		Seasons []struct {
			SeasonNumber int `json:"seasonNumber"`
		} `json:"seasons"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/Request/tv" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("ApiKey"); key != "secret" {
			t.Errorf("ApiKey = %q", key)
		}
		gotUser = r.Header.Get("UserName")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(ombiResponse{Result: true, RequestID: 9})
	}))
	defer server.Close()

	backend := NewOmbi(config.BackendConfig{URL: server.URL, APIKey: "secret", Username: "admin"}, zerolog.Nop())
	result, err := backend.RequestShow(context.Background(), showItem(), 4, "alice", false)
	if err != nil {
		t.Fatalf("RequestShow: %v", err)
	}
	if !result.Success || result.RequestID != "9" {
		t.Errorf("result = %+v", result)
	}
	if gotUser != "alice" {
		t.Errorf("UserName = %q, want the requester", gotUser)
	}
	if got.TvDbID != 81189 || len(got.Seasons) != 1 || got.Seasons[0].SeasonNumber != 4 {
		t.Errorf("payload = %+v", got)
	}
}

func TestOmbiAnimeUsesDedicatedEndpoint(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(ombiResponse{Result: true})
	}))
	defer server.Close()

	backend := NewOmbi(config.BackendConfig{URL: server.URL}, zerolog.Nop())
	if _, err := backend.RequestShow(context.Background(), showItem(), 2, "alice", true); err != nil {
		t.Fatalf("RequestShow: %v", err)
	}
	if gotPath != "/api/v2/Requests/tv" {
		t.Errorf("path = %q, want the anime endpoint", gotPath)
	}
}

func TestOmbiRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ombiResponse{Result: false, ErrorMessage: "Already requested"})
	}))
	defer server.Close()

	backend := NewOmbi(config.BackendConfig{URL: server.URL}, zerolog.Nop())
	result, err := backend.RequestMovie(context.Background(), movieItem(), "alice")
	if err == nil {
		t.Fatal("expected an error for a rejected request")
	}
	if result.Success || result.Message != "Already requested" {
		t.Errorf("result = %+v", result)
	}
}

func TestWebhookRequestShowPayload(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-Api-Key"); key != "secret" {
			t.Errorf("X-Api-Key = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	backend := NewWebhook(config.BackendConfig{URL: server.URL, APIKey: "secret"}, zerolog.Nop())
	backend.newID = func() string { return "fixed-id" }

	result, err := backend.RequestShow(context.Background(), showItem(), 4, "alice", true)
	if err != nil {
		t.Fatalf("RequestShow: %v", err)
	}
	if !result.Success || result.RequestID != "fixed-id" {
		t.Errorf("result = %+v", result)
	}
	if got.EventType != "requestShow" || got.Season != 4 || !got.IsAnime {
		t.Errorf("payload = %+v", got)
	}
	if got.Requester != "alice" || got.TVDbID != 81189 {
		t.Errorf("payload = %+v", got)
	}
}

func TestWebhookNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	backend := NewWebhook(config.BackendConfig{URL: server.URL}, zerolog.Nop())
	result, err := backend.RequestMovie(context.Background(), movieItem(), "alice")
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if result.Success {
		t.Error("result must not be success")
	}
}

func TestFactory(t *testing.T) {
	cfg := config.AcquisitionConfig{Backend: "ombi"}
	backend, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if backend.Name() != "ombi" {
		t.Errorf("Name = %q", backend.Name())
	}

	if _, err := New(config.AcquisitionConfig{Backend: "carrier-pigeon"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(nil)

	byGenre := media.Item{Title: "Whatever", Genres: []string{"Anime", "action"}}
	if !c.IsAnime(byGenre) {
		t.Error("genre match missed")
	}

	byTitle := media.Item{Title: "Naruto Shippuden"}
	if !c.IsAnime(byTitle) {
		t.Error("title keyword missed")
	}

	plain := media.Item{Title: "Breaking Bad", Genres: []string{"drama"}}
	if c.IsAnime(plain) {
		t.Error("false positive")
	}

	custom := NewKeywordClassifier([]string{"gundam"})
	if !custom.IsAnime(media.Item{Title: "Mobile Suit Gundam"}) {
		t.Error("custom keyword missed")
	}
	if custom.IsAnime(byTitle) {
		t.Error("custom list must replace the default list")
	}
}
