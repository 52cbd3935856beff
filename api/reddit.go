package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/reddit-export/models"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultLimit   = 100 // max number of posts per request
	commentLimit   = 500 // max comments per thread request
	moreBatchSize  = 100 // max ids per morechildren request
)

// RedditAPI represents a Reddit API client
type RedditAPI struct {
	clientID     string
	clientSecret string
	userAgent    string
	baseURL      string
	authURL      string
	httpClient   *http.Client
	accessToken  string
	tokenExpiry  time.Time
	mutex        sync.RWMutex
	log          *logrus.Logger
	rateLimiter  *rate.Limiter

	rateRemainingCached int
	rateResetCached     int
	rateUsedCached      int
	rateHeadersMutex    sync.RWMutex
}

// redditThing is one element of a listing; Data is decoded according
// to Kind ("t1" comment, "t3" post, "more" collapsed-children stub).
type redditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// redditListing is the generic Reddit listing envelope.
type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string        `json:"after"`
		Before   string        `json:"before"`
		Children []redditThing `json:"children"`
	} `json:"data"`
}

// redditPostData is the t3 payload for a submission.
type redditPostData struct {
	ID         string  `json:"id"`
	SelfText   string  `json:"selftext"`
	CreatedUTC float64 `json:"created_utc"`
	Score      int     `json:"score"`
}

// redditCommentData is the t1 payload for a comment. Replies is either
// a nested listing or the empty string, so it stays raw until inspected.
type redditCommentData struct {
	ID         string          `json:"id"`
	Body       string          `json:"body"`
	CreatedUTC float64         `json:"created_utc"`
	ParentID   string          `json:"parent_id"`
	Replies    json.RawMessage `json:"replies"`
}

// redditMoreData is the "more" payload listing collapsed child ids.
type redditMoreData struct {
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}

// NewRedditAPI creates a new Reddit API client
func NewRedditAPI(clientID, clientSecret, userAgent string, maxRequestsPerMinute int, log *logrus.Logger) *RedditAPI {
	// default to 100 requests per minute (real Reddit limit)
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 100
	}

	// Reddit allocates requests per rolling 10-minute period; spread the
	// configured per-minute budget over it and keep a 5% safety buffer.
	totalAllocation := maxRequestsPerMinute * 10
	targetRate := float64(totalAllocation) / 600.0 * 0.95

	return &RedditAPI{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		baseURL:      defaultBaseURL,
		authURL:      defaultAuthURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
		// burst 1: no burst capability, matching Reddit's steady allocation
		rateLimiter:     rate.NewLimiter(rate.Limit(targetRate), 1),
		rateResetCached: 600,
	}
}

// GetRateLimitStatus returns the current rate limit status (remaining requests, reset time in seconds, and used requests)
func (r *RedditAPI) GetRateLimitStatus() (int, int, int) {
	r.rateHeadersMutex.RLock()
	defer r.rateHeadersMutex.RUnlock()
	return r.rateRemainingCached, r.rateResetCached, r.rateUsedCached
}

// authenticate authenticates with the Reddit API
func (r *RedditAPI) authenticate(ctx context.Context) error {
	// first check if we already have a valid token without holding the lock for long
	r.mutex.RLock()
	token := r.accessToken
	expiry := r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if err := r.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait during authentication: %w", err)
	}

	data := url.Values{}

	r.log.Debug("Using application-only auth with client credentials")
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var authResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	r.mutex.Lock()
	r.accessToken = authResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn) * time.Second)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

// get performs an authenticated, rate-limited GET against the API and
// decodes the JSON response into out.
func (r *RedditAPI) get(ctx context.Context, endpoint string, out interface{}) error {
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	if err := r.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	r.mutex.RLock()
	token := r.accessToken
	r.mutex.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.log.WithFields(logrus.Fields{
			"endpoint":      endpoint,
			"response_body": string(body),
			"status_code":   resp.StatusCode,
		}).Error("Reddit API error response")
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// FetchTopPosts fetches one page of a subreddit's all-time top posts.
// The returned string is the pagination cursor for the next page; an
// empty cursor means the listing is exhausted.
func (r *RedditAPI) FetchTopPosts(ctx context.Context, subreddit, after string) ([]models.Post, string, error) {
	endpoint := fmt.Sprintf("%s/r/%s/top.json?t=all&limit=%d&raw_json=1", r.baseURL, subreddit, defaultLimit)
	if after != "" {
		endpoint += "&after=" + url.QueryEscape(after)
	}

	r.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"after":     after,
	}).Info("Fetching top posts from Reddit API")

	var listing redditListing
	if err := r.get(ctx, endpoint, &listing); err != nil {
		return nil, "", err
	}

	posts := make([]models.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var data redditPostData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			r.log.WithError(err).Warn("Skipping undecodable post entry")
			continue
		}
		if data.ID == "" || data.CreatedUTC == 0 {
			r.log.WithField("post_id", data.ID).Warn("Skipping post entry missing id or timestamp")
			continue
		}
		posts = append(posts, models.Post{
			ID:         data.ID,
			SelfText:   data.SelfText,
			CreatedUTC: data.CreatedUTC,
			CreatedAt:  time.Unix(int64(data.CreatedUTC), 0).UTC(),
			Score:      data.Score,
		})
	}

	r.log.WithFields(logrus.Fields{
		"post_count": len(posts),
		"subreddit":  subreddit,
		"next_after": listing.Data.After,
	}).Info("Fetched posts from Reddit")

	return posts, listing.Data.After, nil
}

// FetchCommentForest fetches the complete reply tree of one post,
// exhaustively expanding every "load more comments" stub before
// returning, so callers always receive a fully materialized forest.
func (r *RedditAPI) FetchCommentForest(ctx context.Context, postID string) ([]models.CommentNode, error) {
	endpoint := fmt.Sprintf("%s/comments/%s.json?limit=%d&raw_json=1", r.baseURL, postID, commentLimit)

	r.log.WithField("post_id", postID).Info("Fetching comment thread")

	// The thread endpoint returns two listings: the post, then its comments.
	var listings []redditListing
	if err := r.get(ctx, endpoint, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, fmt.Errorf("comment response for post %s has %d listings, want 2", postID, len(listings))
	}

	builder := newForestBuilder(postID, r.log)
	builder.addThings(listings[1].Data.Children, "t3_"+postID)

	if err := r.expandMore(ctx, postID, builder); err != nil {
		return nil, err
	}

	forest := builder.forest()

	r.log.WithFields(logrus.Fields{
		"post_id":       postID,
		"root_comments": len(forest),
	}).Info("Comment thread fully materialized")

	return forest, nil
}

// expandMore drains the builder's queue of "more" stubs, fetching each
// batch of collapsed children until none remain. Fetched batches can
// themselves contain further "more" stubs; those are re-queued.
func (r *RedditAPI) expandMore(ctx context.Context, postID string, builder *forestBuilder) error {
	for builder.pendingMore() > 0 {
		ids := builder.takeMore(moreBatchSize)

		endpoint := fmt.Sprintf("%s/api/morechildren.json?api_type=json&link_id=t3_%s&children=%s&raw_json=1",
			r.baseURL, postID, url.QueryEscape(strings.Join(ids, ",")))

		r.log.WithFields(logrus.Fields{
			"post_id": postID,
			"batch":   len(ids),
			"pending": builder.pendingMore(),
		}).Debug("Expanding collapsed comment batch")

		var moreResp struct {
			JSON struct {
				Data struct {
					Things []redditThing `json:"things"`
				} `json:"data"`
			} `json:"json"`
		}
		if err := r.get(ctx, endpoint, &moreResp); err != nil {
			return fmt.Errorf("failed to expand comments for post %s: %w", postID, err)
		}

		builder.addThings(moreResp.JSON.Data.Things, "")
	}
	return nil
}

// updateRateLimits caches the rate limit headers for debug logging.
// X-Ratelimit-Remaining is bugged on Reddit's side (always 0) but is
// cached anyway in case it gets fixed.
func (r *RedditAPI) updateRateLimits(resp *http.Response) {
	used := getHeaderAsInt(resp.Header, "X-Ratelimit-Used")
	remaining := getHeaderAsInt(resp.Header, "X-Ratelimit-Remaining")
	reset := getHeaderAsInt(resp.Header, "X-Ratelimit-Reset")

	// skip if we didn't get valid headers for some reason
	if reset == 0 && used == 0 {
		return
	}

	r.rateHeadersMutex.Lock()
	r.rateRemainingCached = remaining
	r.rateResetCached = reset
	r.rateUsedCached = used
	r.rateHeadersMutex.Unlock()

	r.log.WithFields(logrus.Fields{
		"used":      used,
		"reset_sec": reset,
	}).Debug("Updated cached Reddit rate limit headers")
}

func getHeaderAsInt(header http.Header, name string) int {
	value := header.Get(name)
	if value == "" {
		return 0
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}

	return intValue
}
