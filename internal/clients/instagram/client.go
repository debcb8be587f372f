package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

// ConfigurationError signals a missing provider credential or base URL.
// Always terminal, never retried.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider setting %q is not configured", e.Setting)
}

// APIError carries the provider's own error message out of a response
// envelope.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "provider api error: " + e.Message
}

// ProfileData is the normalized profile payload extracted from either
// lookup variant.
type ProfileData struct {
	InstagramID       string
	Username          string
	FullName          string
	Biography         string
	IsPrivate         bool
	IsVerified        bool
	MediaCount        int
	FollowerCount     int
	FollowingCount    int
	ProfilePictureURL string
	Raw               json.RawMessage
}

// PostItem is one feed post from the provider.
type PostItem struct {
	ID            string
	Caption       string
	DisplayURI    string
	MediaType     int
	VideoURL      string
	TakenAt       time.Time
	CarouselMedia []CarouselItem
	Raw           json.RawMessage
}

// Provider media types.
const (
	MediaTypeImage    = 1
	MediaTypeVideo    = 2
	MediaTypeCarousel = 8
)

// CarouselItem is one entry of a carousel post.
type CarouselItem struct {
	Reference  string
	DisplayURI string
}

// StoryItem is one story from the provider.
type StoryItem struct {
	ID           string
	ThumbnailURL string
	VideoURL     string
	TakenAt      time.Time
	Raw          json.RawMessage
}

// Client looks up profiles, posts and stories at the social-data provider.
type Client interface {
	FetchProfileByUsername(ctx context.Context, username string) (*ProfileData, error)
	FetchProfileByID(ctx context.Context, instagramID string) (*ProfileData, error)
	FetchPosts(ctx context.Context, instagramID string) ([]*PostItem, error)
	FetchStories(ctx context.Context, username string) ([]*StoryItem, error)
}

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(log *logger.Logger) (Client, error) {
	clientLog := log.With("service", "InstagramClient")
	baseURL := utils.GetEnv("SOCIAL_API_URL", "", log)
	if strings.TrimSpace(baseURL) == "" {
		return nil, &ConfigurationError{Setting: "SOCIAL_API_URL"}
	}
	token := utils.GetEnv("SOCIAL_API_TOKEN", "", log)
	if strings.TrimSpace(token) == "" {
		return nil, &ConfigurationError{Setting: "SOCIAL_API_TOKEN"}
	}
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        clientLog,
	}, nil
}

func (c *client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider response read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider api error: unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

type profileEnvelope struct {
	Data struct {
		Status       bool            `json:"status"`
		ErrorMessage string          `json:"errorMessage"`
		Data         struct {
			User json.RawMessage `json:"user"`
		} `json:"data"`
	} `json:"data"`
}

func (c *client) FetchProfileByUsername(ctx context.Context, username string) (*ProfileData, error) {
	params := url.Values{"username": {username}}
	var env profileEnvelope
	if err := c.get(ctx, "/api/v1/instagram/user/by/username", params, &env); err != nil {
		return nil, err
	}
	if !env.Data.Status {
		msg := env.Data.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &APIError{Message: msg}
	}
	if len(env.Data.Data.User) == 0 {
		return nil, &APIError{Message: "empty user payload"}
	}
	return parseProfile(env.Data.Data.User)
}

type profileByIDEnvelope struct {
	Data struct {
		Status       bool            `json:"status"`
		ErrorMessage string          `json:"errorMessage"`
		Data         json.RawMessage `json:"data"`
	} `json:"data"`
}

func (c *client) FetchProfileByID(ctx context.Context, instagramID string) (*ProfileData, error) {
	params := url.Values{"id": {instagramID}}
	var env profileByIDEnvelope
	if err := c.get(ctx, "/api/v1/instagram/user/by/id", params, &env); err != nil {
		return nil, err
	}
	if !env.Data.Status {
		msg := env.Data.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &APIError{Message: msg}
	}
	if len(env.Data.Data) == 0 {
		return nil, &APIError{Message: "empty user payload"}
	}
	return parseProfile(env.Data.Data)
}

type rawProfile struct {
	ID             string `json:"id"`
	PK             string `json:"pk"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Biography      string `json:"biography"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	ProfilePicURL  string `json:"profile_pic_url_hd"`
	ProfilePicStd  string `json:"profile_pic_url"`
	MediaCount     int    `json:"media_count"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	EdgeMedia      struct {
		Count int `json:"count"`
	} `json:"edge_owner_to_timeline_media"`
	EdgeFollowedBy struct {
		Count int `json:"count"`
	} `json:"edge_followed_by"`
	EdgeFollow struct {
		Count int `json:"count"`
	} `json:"edge_follow"`
}

func parseProfile(raw json.RawMessage) (*ProfileData, error) {
	var p rawProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("provider api error: malformed user payload: %w", err)
	}
	out := &ProfileData{
		InstagramID:       p.ID,
		Username:          p.Username,
		FullName:          p.FullName,
		Biography:         p.Biography,
		IsPrivate:         p.IsPrivate,
		IsVerified:        p.IsVerified,
		MediaCount:        p.MediaCount,
		FollowerCount:     p.FollowerCount,
		FollowingCount:    p.FollowingCount,
		ProfilePictureURL: p.ProfilePicURL,
		Raw:               raw,
	}
	if out.InstagramID == "" {
		out.InstagramID = p.PK
	}
	if out.ProfilePictureURL == "" {
		out.ProfilePictureURL = p.ProfilePicStd
	}
	if out.MediaCount == 0 {
		out.MediaCount = p.EdgeMedia.Count
	}
	if out.FollowerCount == 0 {
		out.FollowerCount = p.EdgeFollowedBy.Count
	}
	if out.FollowingCount == 0 {
		out.FollowingCount = p.EdgeFollow.Count
	}
	return out, nil
}

type postsEnvelope struct {
	Data struct {
		Items []json.RawMessage `json:"items"`
	} `json:"data"`
}

type rawPost struct {
	PK      string `json:"pk"`
	Caption struct {
		Text string `json:"text"`
	} `json:"caption"`
	DisplayURI    string `json:"display_uri"`
	MediaType     int    `json:"media_type"`
	VideoURL      string `json:"video_url"`
	TakenAt       int64  `json:"taken_at"`
	CarouselMedia []struct {
		StrongID   string `json:"strong_id__"`
		DisplayURI string `json:"display_uri"`
	} `json:"carousel_media"`
}

func (c *client) FetchPosts(ctx context.Context, instagramID string) ([]*PostItem, error) {
	params := url.Values{"id": {instagramID}}
	var env postsEnvelope
	if err := c.get(ctx, "/api/v1/instagram/user/posts", params, &env); err != nil {
		return nil, err
	}
	out := make([]*PostItem, 0, len(env.Data.Items))
	for _, raw := range env.Data.Items {
		var p rawPost
		if err := json.Unmarshal(raw, &p); err != nil {
			c.log.Warn("Skipping malformed post item", "error", err)
			continue
		}
		item := &PostItem{
			ID:         p.PK,
			Caption:    p.Caption.Text,
			DisplayURI: p.DisplayURI,
			MediaType:  p.MediaType,
			VideoURL:   p.VideoURL,
			Raw:        raw,
		}
		if p.TakenAt > 0 {
			item.TakenAt = time.Unix(p.TakenAt, 0).UTC()
		}
		for _, m := range p.CarouselMedia {
			item.CarouselMedia = append(item.CarouselMedia, CarouselItem{
				Reference:  m.StrongID,
				DisplayURI: m.DisplayURI,
			})
		}
		out = append(out, item)
	}
	return out, nil
}

type storiesEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
		} `json:"data"`
	} `json:"data"`
}

type rawStory struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url"`
	TakenAtDate  string `json:"taken_at_date"`
}

func (c *client) FetchStories(ctx context.Context, username string) ([]*StoryItem, error) {
	params := url.Values{"username": {username}}
	var env storiesEnvelope
	if err := c.get(ctx, "/api/v1/instagram/user/stories", params, &env); err != nil {
		return nil, err
	}
	if env.Code != 200 {
		msg := env.Message
		if msg == "" {
			msg = "unknown api error"
		}
		return nil, &APIError{Message: msg}
	}
	out := make([]*StoryItem, 0, len(env.Data.Data.Items))
	for _, raw := range env.Data.Data.Items {
		var s rawStory
		if err := json.Unmarshal(raw, &s); err != nil {
			c.log.Warn("Skipping malformed story item", "error", err)
			continue
		}
		item := &StoryItem{
			ID:           s.ID,
			ThumbnailURL: s.ThumbnailURL,
			VideoURL:     s.VideoURL,
			Raw:          raw,
		}
		if s.TakenAtDate != "" {
			if ts, err := time.Parse(time.RFC3339, s.TakenAtDate); err == nil {
				item.TakenAt = ts
			}
		}
		out = append(out, item)
	}
	return out, nil
}
