package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/rlog"
	"github.com/metarelay/metarelay/internal/types"
)

// SupabaseClient is the Port adapter for a Supabase-backed events table:
// PostgREST for catch-up range-fetch, Realtime (phoenix-channel websocket)
// for live push subscription.
type SupabaseClient struct {
	baseURL string
	apiKey  string

	http *http.Client

	realtime *realtimeConn
}

// NewSupabaseClient builds a client against a Supabase project.
func NewSupabaseClient(supabaseURL, apiKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL: supabaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Connect is a no-op beyond validating configuration: PostgREST calls are
// stateless HTTP and the Realtime websocket is opened lazily by Subscribe.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.baseURL == "" || c.apiKey == "" {
		return errs.NewConnectionError("supabase url and key are required", nil)
	}
	return nil
}

// Disconnect tears down any open Realtime channel (best-effort) and
// forgets the HTTP client state. Idempotent.
func (c *SupabaseClient) Disconnect(ctx context.Context) {
	if c.realtime != nil {
		c.realtime.close()
		c.realtime = nil
	}
}

// eventRow mirrors one row of the "events" table as returned by PostgREST
// or delivered over Realtime.
type eventRow struct {
	ID         int64          `json:"id"`
	Repo       string         `json:"repo"`
	EventType  string         `json:"event_type"`
	Action     string         `json:"action"`
	Ref        *string        `json:"ref"`
	Actor      *string        `json:"actor"`
	Summary    *string        `json:"summary"`
	Payload    map[string]any `json:"payload"`
	DeliveryID *string        `json:"delivery_id"`
}

func (r eventRow) toEvent() types.Event {
	e := types.Event{
		ID:        r.ID,
		Repo:      r.Repo,
		EventType: r.EventType,
		Action:    r.Action,
		Payload:   r.Payload,
	}
	if r.Ref != nil {
		e.Ref = *r.Ref
	}
	if r.Actor != nil {
		e.Actor = *r.Actor
	}
	if r.Summary != nil {
		e.Summary = *r.Summary
	}
	if r.DeliveryID != nil {
		e.DeliveryID = *r.DeliveryID
	} else {
		e.DeliveryID = uuid.NewString()
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return e
}

// FetchEventsSince queries PostgREST for rows with id > afterID for repo,
// ordered by id ascending, capped at limit.
func (c *SupabaseClient) FetchEventsSince(ctx context.Context, repo string, afterID int64, limit int) ([]types.Event, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/events", c.baseURL)
	q := url.Values{}
	q.Set("select", "*")
	q.Set("repo", "eq."+repo)
	q.Set("id", "gt."+strconv.FormatInt(afterID, 10))
	q.Set("order", "id.asc")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errs.NewConnectionError("failed to build fetch request", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewConnectionError("failed to fetch events", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewConnectionError(fmt.Sprintf("fetch events returned status %d", resp.StatusCode), nil)
	}

	var rows []eventRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errs.NewConnectionError("failed to decode fetch response", err)
	}

	events := make([]types.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

// Subscribe opens (or reuses) a Realtime connection and listens for
// INSERT-class events on the events table, forwarding matches to onEvent
// and every status transition to onStatus.
func (c *SupabaseClient) Subscribe(ctx context.Context, repos []string, onEvent OnEvent, onStatus OnStatus) error {
	logger := rlog.WithComponent("cloud")

	repoSet := make(map[string]bool, len(repos))
	for _, r := range repos {
		repoSet[r] = true
	}

	conn, err := dialRealtime(ctx, c.baseURL, c.apiKey)
	if err != nil {
		return errs.NewConnectionError("failed to subscribe to realtime channel", err)
	}
	c.realtime = conn

	conn.onInsert = func(row eventRow) {
		if !repoSet[row.Repo] {
			return
		}
		event := row.toEvent()
		if err := event.Validate(); err != nil {
			logger.Warn().Err(err).Msg("dropping malformed realtime payload")
			return
		}
		onEvent(&event)
	}
	conn.onStatus = func(status string, err error) {
		logger.Info().Str("status", status).Msg("subscription status")
		if onStatus != nil {
			onStatus(status, err)
		}
	}

	return conn.start(ctx)
}
