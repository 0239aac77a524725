package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"character-quiz-service/internal/domain"
)

// Client loads quiz definitions from the content API:
// GET {base}/api/quizzes/{quizID}.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "content_client").Logger(),
	}
}

func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	url := c.baseURL + "/api/quizzes/" + quizID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("quiz_id", quizID).Msg("content fetch failed")
		return domain.QuizContent{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.QuizContent{}, domain.ErrQuizNotFound
	case resp.StatusCode != http.StatusOK:
		return domain.QuizContent{}, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload quizPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.QuizContent{}, fmt.Errorf("%w: decode body: %v", domain.ErrUpstreamUnavailable, err)
	}
	return payload.toContent(quizID)
}

// quizPayload mirrors the content API body. The characters field is either
// a flat list (single-season quizzes) or an object keyed by season whose
// values are lists or group maps, so it is decoded lazily.
type quizPayload struct {
	Data struct {
		Attributes struct {
			Characters json.RawMessage `json:"characters"`
			Media      struct {
				Data []mediaEntry `json:"data"`
			} `json:"media"`
		} `json:"attributes"`
	} `json:"data"`
}

type mediaEntry struct {
	Attributes struct {
		Name  string `json:"name"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"attributes"`
}

func (p quizPayload) toContent(quizID string) (domain.QuizContent, error) {
	rosters, err := parseRosters(p.Data.Attributes.Characters)
	if err != nil {
		return domain.QuizContent{}, err
	}

	media := make([]domain.MediaImage, 0, len(p.Data.Attributes.Media.Data))
	for _, entry := range p.Data.Attributes.Media.Data {
		name := entry.Attributes.Name
		if name == "" {
			name = entry.Attributes.Title
		}
		media = append(media, domain.MediaImage{Name: name, URL: entry.Attributes.URL})
	}

	return domain.QuizContent{ID: quizID, Rosters: rosters, Media: media}, nil
}

func parseRosters(raw json.RawMessage) (map[int]domain.Roster, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing characters", domain.ErrUpstreamUnavailable)
	}

	// Flat list: a single season-1 roster.
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return map[int]domain.Roster{1: {Characters: flat}}, nil
	}

	var bySeason map[string]json.RawMessage
	if err := json.Unmarshal(raw, &bySeason); err != nil {
		return nil, fmt.Errorf("%w: malformed characters: %v", domain.ErrUpstreamUnavailable, err)
	}

	rosters := make(map[int]domain.Roster, len(bySeason))
	for key, value := range bySeason {
		season, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		roster, err := parseRoster(value)
		if err != nil {
			return nil, err
		}
		rosters[season] = roster
	}
	return rosters, nil
}

func parseRoster(raw json.RawMessage) (domain.Roster, error) {
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return domain.Roster{Characters: flat}, nil
	}
	var groups map[string][]string
	if err := json.Unmarshal(raw, &groups); err != nil {
		return domain.Roster{}, fmt.Errorf("%w: malformed roster: %v", domain.ErrUpstreamUnavailable, err)
	}
	return domain.Roster{Groups: groups}, nil
}

