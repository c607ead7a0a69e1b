package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

const (
	defaultBaseURL     = "https://discord.com/api/v10"
	defaultTimeout     = 30 * time.Second
	maxHistoryPage     = 100
	maxRetryAfter      = 30 * time.Second
	breakerFailures    = 5
	breakerOpenTimeout = 30 * time.Second
)

type discordAuthor struct {
	ID string `json:"id"`
}

type discordMessage struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Author    discordAuthor `json:"author"`
	Timestamp time.Time     `json:"timestamp"`
}

func (m discordMessage) message() Message {
	return Message{ID: m.ID, AuthorID: m.Author.ID, Content: m.Content, CreatedAt: m.Timestamp}
}

type contentBody struct {
	Content string `json:"content"`
}

type rateLimitBody struct {
	RetryAfter float64 `json:"retry_after"`
}

// Discord is a Channel backed by the Discord REST API.
type Discord struct {
	channelID string
	token     string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	logger    logger.Logger

	selfMu sync.Mutex
	selfID string
}

// NewDiscord creates a client for one Discord channel, authenticated as a bot.
func NewDiscord(token, channelID string, opts ...DiscordOption) *Discord {
	d := &Discord{
		channelID: channelID,
		token:     token,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
		logger:    logger.Get().Named("discord"),
	}
	for _, opt := range opts {
		opt(d)
	}

	name := "discord:" + channelID
	d.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// A vanished message or a bad payload says nothing about channel health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrTooLong)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, stateToFloat(to))
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			d.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	metrics.UpdateBreakerState(name, stateToFloat(gobreaker.StateClosed))
	return d
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Send implements Channel.
func (d *Discord) Send(ctx context.Context, content string) (Message, error) {
	if err := checkLength(content); err != nil {
		return Message{}, err
	}
	var out discordMessage
	if err := d.do(ctx, "send", http.MethodPost, d.messagesPath(), contentBody{Content: content}, &out); err != nil {
		return Message{}, err
	}
	d.remember(out)
	return out.message(), nil
}

// FetchHistory implements Channel. Discord returns messages newest first.
func (d *Discord) FetchHistory(ctx context.Context, limit int) ([]Message, error) {
	var (
		out    []Message
		before string
	)
	for len(out) < limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(min(limit-len(out), maxHistoryPage)))
		if before != "" {
			q.Set("before", before)
		}
		var page []discordMessage
		if err := d.do(ctx, "history", http.MethodGet, d.messagesPath()+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, m.message())
		}
		if len(page) < maxHistoryPage {
			break
		}
		before = page[len(page)-1].ID
	}
	return out, nil
}

// Edit implements Channel.
func (d *Discord) Edit(ctx context.Context, id, content string) (Message, error) {
	if err := checkLength(content); err != nil {
		return Message{}, err
	}
	var out discordMessage
	if err := d.do(ctx, "edit", http.MethodPatch, d.messagesPath()+"/"+url.PathEscape(id), contentBody{Content: content}, &out); err != nil {
		return Message{}, err
	}
	return out.message(), nil
}

// Self implements Channel. The bot's user id is fetched once and cached;
// a failed lookup is retried on the next call.
func (d *Discord) Self(ctx context.Context) (string, error) {
	d.selfMu.Lock()
	defer d.selfMu.Unlock()
	if d.selfID != "" {
		return d.selfID, nil
	}
	var me discordAuthor
	if err := d.do(ctx, "self", http.MethodGet, "/users/@me", nil, &me); err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", model.NewError("discord.self", model.ErrTransport, errors.New("empty user id"))
	}
	d.selfID = me.ID
	return me.ID, nil
}

func (d *Discord) remember(m discordMessage) {
	if m.Author.ID == "" {
		return
	}
	d.selfMu.Lock()
	if d.selfID == "" {
		d.selfID = m.Author.ID
	}
	d.selfMu.Unlock()
}

func (d *Discord) messagesPath() string {
	return "/channels/" + url.PathEscape(d.channelID) + "/messages"
}

func checkLength(content string) error {
	if n := len([]rune(content)); n > MaxContentLength {
		return fmt.Errorf("%d characters: %w", n, ErrTooLong)
	}
	return nil
}

// do runs one API call through the limiter and breaker and decodes the
// response into out. A single 429 answer is retried after the advertised delay.
func (d *Discord) do(ctx context.Context, op, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("discord %s: encode: %w", op, err)
		}
	}

	body, err := d.breaker.Execute(func() ([]byte, error) {
		for attempt := 0; ; attempt++ {
			if err := d.limiter.Wait(ctx); err != nil {
				return nil, model.NewError("discord."+op, model.ErrTransport, err)
			}
			body, wait, err := d.roundTrip(ctx, op, method, path, payload)
			if wait <= 0 || attempt > 0 {
				return body, err
			}
			d.logger.Warn(ctx, "discord rate limited",
				logger.String("op", op),
				logger.Duration("retry_after", wait))
			select {
			case <-ctx.Done():
				return nil, model.NewError("discord."+op, model.ErrTransport, ctx.Err())
			case <-time.After(wait):
			}
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return model.NewError("discord."+op, model.ErrTransport, err)
		}
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewError("discord."+op, model.ErrTransport, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// roundTrip performs one HTTP request. A positive wait means the call was
// rate limited and may be retried after it.
func (d *Discord) roundTrip(ctx context.Context, op, method, path string, payload []byte) ([]byte, time.Duration, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("discord %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("User-Agent", "timeattack (https://github.com/okian/timeattack, 1.0)")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordChannelRequest(op, "error", elapsed)
		return nil, 0, model.NewError("discord."+op, model.ErrTransport, err)
	}
	defer resp.Body.Close()
	metrics.RecordChannelRequest(op, strconv.Itoa(resp.StatusCode), elapsed)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, model.NewError("discord."+op, model.ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, fmt.Errorf("discord %s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, model.NewError("discord."+op, model.ErrTransport, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnauthorized))
	case resp.StatusCode == http.StatusTooManyRequests:
		err := model.NewError("discord."+op, model.ErrTransport, fmt.Errorf("status %d: rate limited", resp.StatusCode))
		return nil, retryAfter(resp, body), err
	default:
		return nil, 0, model.NewError("discord."+op, model.ErrTransport, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)))
	}
}

func retryAfter(resp *http.Response, body []byte) time.Duration {
	var wait time.Duration
	var rl rateLimitBody
	if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
		wait = time.Duration(rl.RetryAfter * float64(time.Second))
	} else if s, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && s > 0 {
		wait = time.Duration(s * float64(time.Second))
	} else {
		wait = time.Second
	}
	return min(wait, maxRetryAfter)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
