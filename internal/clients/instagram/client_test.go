package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func testClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("SOCIAL_API_URL", server.URL)
	t.Setenv("SOCIAL_API_TOKEN", "test-token")
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	c, err := NewClient(log)
	if err != nil {
		t.Fatalf("init client: %v", err)
	}
	return c, server
}

func TestNewClient_RequiresConfig(t *testing.T) {
	t.Setenv("SOCIAL_API_URL", "")
	t.Setenv("SOCIAL_API_TOKEN", "")
	log, _ := logger.New("development")
	_, err := NewClient(log)
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestFetchProfileByUsername(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if got := r.URL.Query().Get("username"); got != "someuser" {
			t.Errorf("unexpected username param: %q", got)
		}
		w.Write([]byte(`{"data":{"status":true,"data":{"user":{
			"id":"123","username":"someuser","full_name":"Some User",
			"is_private":true,"profile_pic_url_hd":"http://cdn/p.jpg",
			"edge_owner_to_timeline_media":{"count":12},
			"edge_followed_by":{"count":340},
			"edge_follow":{"count":99}
		}}}}`))
	}))

	profile, err := c.FetchProfileByUsername(context.Background(), "someuser")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.InstagramID != "123" || profile.Username != "someuser" {
		t.Fatalf("unexpected identity: %+v", profile)
	}
	if !profile.IsPrivate {
		t.Fatalf("expected private profile")
	}
	if profile.ProfilePictureURL != "http://cdn/p.jpg" {
		t.Fatalf("unexpected picture url: %q", profile.ProfilePictureURL)
	}
	if profile.MediaCount != 12 || profile.FollowerCount != 340 || profile.FollowingCount != 99 {
		t.Fatalf("edge counts not applied: %+v", profile)
	}
	if len(profile.Raw) == 0 {
		t.Fatalf("raw payload must be preserved")
	}
}

func TestFetchProfileByUsername_ProviderError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":false,"errorMessage":"user not found"}}`))
	}))

	_, err := c.FetchProfileByUsername(context.Background(), "ghost")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "user not found" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestFetchProfileByID_UsesPKFallback(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":true,"data":{
			"pk":"987","username":"pkuser","profile_pic_url":"http://cdn/std.jpg",
			"media_count":3,"follower_count":10,"following_count":5
		}}}`))
	}))

	profile, err := c.FetchProfileByID(context.Background(), "987")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.InstagramID != "987" {
		t.Fatalf("pk fallback not applied: %+v", profile)
	}
	if profile.ProfilePictureURL != "http://cdn/std.jpg" {
		t.Fatalf("standard picture fallback not applied: %q", profile.ProfilePictureURL)
	}
}

func TestFetchPosts_SkipsMalformedItems(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[
			{"pk":"p1","media_type":8,"caption":{"text":"hi"},
			 "carousel_media":[{"strong_id__":"c1","display_uri":"http://cdn/c1.jpg"}]},
			"not an object",
			{"pk":"p2","media_type":2,"video_url":"http://cdn/v.mp4","taken_at":1700000000}
		]}}`))
	}))

	posts, err := c.FetchPosts(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected malformed item skipped, got %d posts", len(posts))
	}
	if posts[0].MediaType != MediaTypeCarousel || len(posts[0].CarouselMedia) != 1 {
		t.Fatalf("carousel not parsed: %+v", posts[0])
	}
	if posts[0].CarouselMedia[0].Reference != "c1" {
		t.Fatalf("carousel reference not parsed: %+v", posts[0].CarouselMedia[0])
	}
	if posts[1].VideoURL != "http://cdn/v.mp4" || posts[1].TakenAt.IsZero() {
		t.Fatalf("video post not parsed: %+v", posts[1])
	}
}

func TestFetchStories(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"data":{"items":[
			{"id":"s1","thumbnail_url":"http://cdn/s1.jpg"},
			{"id":"s2","thumbnail_url":"http://cdn/s2.jpg","video_url":"http://cdn/s2.mp4"}
		]}}}`))
	}))

	stories, err := c.FetchStories(context.Background(), "someuser")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	if stories[1].VideoURL != "http://cdn/s2.mp4" {
		t.Fatalf("video url not parsed: %+v", stories[1])
	}
}

func TestFetchStories_ErrorCode(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":503,"message":"upstream unavailable"}`))
	}))

	_, err := c.FetchStories(context.Background(), "someuser")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}
