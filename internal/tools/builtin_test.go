// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/german"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/offline"
	"github.com/jeranaias/rigrun-tools/internal/streaks"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeSampler struct {
	calls atomic.Int32
	err   error
}

func (p *fakeSampler) Sample(context.Context) (SystemInfo, error) {
	p.calls.Add(1)
	if p.err != nil {
		return SystemInfo{}, p.err
	}
	return SystemInfo{OS: "linux", CPUCount: 8, CPUPercent: 12.5, MemUsedGB: 3.2, MemTotalGB: 16}, nil
}

func testDeps() Deps {
	return Deps{
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
		System:   &fakeSampler{},
	}
}

func newBuiltinDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	return newDispatcher(t, Options{Docs: newDocs(t)}, Builtins(deps)...)
}

func invoke(t *testing.T, d *Dispatcher, name string, args map[string]any) Result {
	t.Helper()
	res, err := d.Invoke(context.Background(), name, args)
	require.NoError(t, err, name)
	return res
}

// =============================================================================
// PURE TOOLS
// =============================================================================

func TestSayHello(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	res := invoke(t, d, "say_hello", map[string]any{"name": "Ada"})
	assert.Equal(t, "Hello Ada, I hope you are well today.", res.Value)

	_, err := d.Invoke(context.Background(), "say_hello", map[string]any{"name": "  "})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

func TestAssessGerman(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	res := invoke(t, d, "assess_german", map[string]any{"sentence": "ich habe ein haus"})
	a, ok := res.Value.(german.Assessment)
	require.True(t, ok)
	assert.Equal(t, "A1", a.Level)
	assert.Equal(t, 55, a.Score)

	_, err := d.Invoke(context.Background(), "assess_german", map[string]any{"sentence": "x", "level": "Z9"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

// =============================================================================
// NETWORK TOOLS
// =============================================================================

func TestGetWeather(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		w.Write([]byte(`{"cod":200,"name":"London","sys":{"country":"GB"},
			"weather":[{"description":"light rain"}],
			"main":{"temp":12.3,"feels_like":11.0,"humidity":81},"wind":{"speed":4.1}}`))
	}))
	defer srv.Close()

	deps := testDeps()
	deps.Weather = WeatherConfig{APIKey: "secret", BaseURL: srv.URL}
	d := newBuiltinDispatcher(t, deps)

	res := invoke(t, d, "get_weather", map[string]any{"city": "London"})
	rep, ok := res.Value.(WeatherReport)
	require.True(t, ok)
	assert.Equal(t, "Light rain", rep.Description)
	assert.Equal(t, 81, rep.Humidity)
	assert.Equal(t, "Weather in London, GB: Light rain, 12.3°C (feels like 11.0°C), humidity 81%, wind 4.1 m/s", rep.Summary)

	again := invoke(t, d, "get_weather", map[string]any{"city": "london"})
	assert.True(t, again.Cached)
	assert.Equal(t, int32(1), hits.Load())

	_, err := d.Invoke(context.Background(), "get_weather", map[string]any{"city": "Atlantis"})
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindInvalidArguments, te.Kind)
	assert.Equal(t, "city", te.Field)
}

func TestGetWeather_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	deps := testDeps()
	deps.Weather = WeatherConfig{APIKey: "wrong", BaseURL: srv.URL}
	d := newBuiltinDispatcher(t, deps)

	_, err := d.Invoke(context.Background(), "get_weather", map[string]any{"city": "Paris"})
	assert.Equal(t, KindUpstreamFailure, kindOf(t, err))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestGetWeather_MissingKey(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	_, err := d.Invoke(context.Background(), "get_weather", map[string]any{"city": "Paris"})
	assert.Equal(t, KindUpstreamFailure, kindOf(t, err))
	assert.Contains(t, err.Error(), "OPENWEATHER_API_KEY")
}

func TestGetWeather_OfflineBlocksRemoteHosts(t *testing.T) {
	deps := testDeps()
	deps.Weather = WeatherConfig{APIKey: "k"}
	deps.Offline = offline.Policy{Enabled: true}
	d := newBuiltinDispatcher(t, deps)

	_, err := d.Invoke(context.Background(), "get_weather", map[string]any{"city": "Paris"})
	assert.Equal(t, KindUpstreamFailure, kindOf(t, err))
	assert.ErrorIs(t, err, offline.ErrNetworkBlocked)
}

func TestWikiSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page/summary/Go_(programming_language)":
			w.Write([]byte(`{"type":"standard","title":"Go (programming language)",
				"description":"Programming language","extract":"Go is a statically typed language.",
				"content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Go_(programming_language)"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"type":"not_found","detail":"Not found."}`))
		}
	}))
	defer srv.Close()

	deps := testDeps()
	deps.Wikipedia = WikipediaConfig{BaseURL: srv.URL + "/"}
	d := newBuiltinDispatcher(t, deps)

	res := invoke(t, d, "wiki_summary", map[string]any{"title": "Go (programming language)"})
	ws, ok := res.Value.(WikiSummary)
	require.True(t, ok)
	assert.Equal(t, "Go is a statically typed language.", ws.Extract)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", ws.URL)
	assert.False(t, ws.Disambiguation)

	_, err := d.Invoke(context.Background(), "wiki_summary", map[string]any{"title": "Nonexistent page"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

func TestSystemInfo(t *testing.T) {
	deps := testDeps()
	sampler := &fakeSampler{}
	deps.System = sampler
	d := newBuiltinDispatcher(t, deps)

	res := invoke(t, d, "system_info", nil)
	info, ok := res.Value.(SystemInfo)
	require.True(t, ok)
	assert.Equal(t, 8, info.CPUCount)
	assert.Contains(t, info.String(), "CPUs: 8")

	invoke(t, d, "system_info", map[string]any{})
	assert.Equal(t, int32(1), sampler.calls.Load())

	failing := testDeps()
	failing.System = &fakeSampler{err: errors.New("no /proc")}
	d = newBuiltinDispatcher(t, failing)
	_, err := d.Invoke(context.Background(), "system_info", nil)
	assert.Equal(t, KindUpstreamFailure, kindOf(t, err))
}

// =============================================================================
// DOCUMENT TOOLS
// =============================================================================

func TestNotes(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	invoke(t, d, "add_note", map[string]any{"text": "buy milk", "tags": []any{"shopping", " Shopping ", ""}})
	invoke(t, d, "add_note", map[string]any{"text": "call mom"})

	all := invoke(t, d, "list_notes", nil).Value.([]model.Note)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"shopping"}, all[0].Tags)

	tagged := invoke(t, d, "list_notes", map[string]any{"tag": "SHOPPING"}).Value.([]model.Note)
	require.Len(t, tagged, 1)
	assert.Equal(t, "buy milk", tagged[0].Text)

	_, err := d.Invoke(context.Background(), "add_note", map[string]any{"text": "x", "tags": "notalist"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

func TestTodos(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	late := invoke(t, d, "add_todo", map[string]any{"text": "late", "due_at": "2025-03-01 09:00"}).Value.(model.TodoItem)
	early := invoke(t, d, "add_todo", map[string]any{"text": "early", "due_at": "2025-03-01 08:00"}).Value.(model.TodoItem)
	invoke(t, d, "add_todo", map[string]any{"text": "later", "due_at": "2025-03-02T10:00:00Z"})
	invoke(t, d, "add_todo", map[string]any{"text": "someday"})

	due := invoke(t, d, "due_todos", nil).Value.([]model.TodoItem)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	future := invoke(t, d, "due_todos", map[string]any{"at": "2025-03-03"}).Value.([]model.TodoItem)
	assert.Len(t, future, 3)

	done := invoke(t, d, "complete_todo", map[string]any{"id": early.ID}).Value.(model.TodoItem)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)

	_, err := d.Invoke(context.Background(), "complete_todo", map[string]any{"id": early.ID})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
	_, err = d.Invoke(context.Background(), "complete_todo", map[string]any{"id": "missing"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
	_, err = d.Invoke(context.Background(), "add_todo", map[string]any{"text": "x", "due_at": "next tuesday"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))

	open := invoke(t, d, "list_todos", nil).Value.([]model.TodoItem)
	assert.Len(t, open, 3)
	all := invoke(t, d, "list_todos", map[string]any{"include_done": true}).Value.([]model.TodoItem)
	assert.Len(t, all, 4)
}

func TestReminders(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	r := invoke(t, d, "add_reminder", map[string]any{"text": "stand up", "due_at": "2025-03-01T09:00:00Z"}).Value.(model.ReminderItem)
	invoke(t, d, "add_reminder", map[string]any{"text": "lunch", "due_at": "2025-03-01 12:00"})

	due := invoke(t, d, "due_reminders", nil).Value.([]model.ReminderItem)
	require.Len(t, due, 1)
	assert.Equal(t, r.ID, due[0].ID)

	invoke(t, d, "dismiss_reminder", map[string]any{"id": r.ID})
	assert.Empty(t, invoke(t, d, "due_reminders", nil).Value.([]model.ReminderItem))

	_, err := d.Invoke(context.Background(), "add_reminder", map[string]any{"text": "x"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

func TestStudyStreak(t *testing.T) {
	deps := testDeps()
	now := fixedNow
	deps.Now = func() time.Time { return now }
	d := newBuiltinDispatcher(t, deps)

	info := invoke(t, d, "record_visit", nil).Value.(streaks.Info)
	assert.Equal(t, 1, info.Streak)
	assert.Equal(t, []string{"First Activity"}, info.NewlyEarned)

	now = now.AddDate(0, 0, 1)
	invoke(t, d, "record_assessment", nil)
	now = now.AddDate(0, 0, 1)
	info = invoke(t, d, "record_visit", nil).Value.(streaks.Info)
	assert.Equal(t, 3, info.Streak)
	assert.Contains(t, info.Badges, "3-Day Streak")
	assert.Equal(t, 1, info.TotalAssessments)

	info = invoke(t, d, "streak_info", nil).Value.(streaks.Info)
	assert.Equal(t, 3, info.Streak)
	assert.Empty(t, info.NewlyEarned)

	now = now.AddDate(0, 0, 2)
	info = invoke(t, d, "streak_info", nil).Value.(streaks.Info)
	assert.Equal(t, 0, info.Streak)
	assert.Equal(t, 3, info.TotalDaysActive)
}

func TestImportCards_AcceptsGermanAttempts(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())

	attempts := invoke(t, d, "import_cards", map[string]any{"cards": []any{
		map[string]any{"original": "Ich habe kein Zeit", "correction": "Ich habe keine Zeit"},
		map[string]any{"sentence": "Er geht nach Hause"},
		map[string]any{"original": "", "sentence": "Wir lernen Deutsch", "back": "we learn German"},
		map[string]any{"correction": "no front"},
	}}).Value.(ImportResult)
	assert.Equal(t, ImportResult{Added: 3, Total: 3}, attempts)
	deck, err := docstore.Read[model.CardDeck](d.Docs(), model.DocCards)
	require.NoError(t, err)
	backs := map[string]string{}
	for _, c := range deck.Cards {
		backs[c.Front] = c.Back
	}
	assert.Equal(t, "Ich habe keine Zeit", backs["Ich habe kein Zeit"])
	assert.Equal(t, "", backs["Er geht nach Hause"])
	assert.Equal(t, "we learn German", backs["Wir lernen Deutsch"])
}

func TestCards(t *testing.T) {
	deps := testDeps()
	now := fixedNow
	deps.Now = func() time.Time { return now }
	d := newBuiltinDispatcher(t, deps)

	added := invoke(t, d, "add_card", map[string]any{"front": "das Haus", "back": "the house"}).Value.(AddCardResult)
	assert.True(t, added.Added)
	dup := invoke(t, d, "add_card", map[string]any{"front": "das Haus"}).Value.(AddCardResult)
	assert.False(t, dup.Added)
	assert.Equal(t, added.Card.ID, dup.Card.ID)

	imp := invoke(t, d, "import_cards", map[string]any{"cards": []any{
		map[string]any{"front": "das Auto", "back": "the car"},
		map[string]any{"front": "das Haus", "back": "dup"},
	}}).Value.(ImportResult)
	assert.Equal(t, ImportResult{Added: 1, Total: 2}, imp)

	_, err := d.Invoke(context.Background(), "import_cards", map[string]any{"cards": []any{"nope"}})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))

	due := invoke(t, d, "due_cards", nil).Value.([]model.Card)
	assert.Len(t, due, 2)
	limited := invoke(t, d, "due_cards", map[string]any{"limit": 1.0}).Value.([]model.Card)
	assert.Len(t, limited, 1)

	card := invoke(t, d, "review_card", map[string]any{"id": added.Card.ID, "quality": 5.0}).Value.(model.Card)
	assert.Equal(t, 1, card.Repetitions)
	assert.Equal(t, now.AddDate(0, 0, 1), card.NextReview)
	assert.Len(t, invoke(t, d, "due_cards", nil).Value.([]model.Card), 1)

	_, err = d.Invoke(context.Background(), "review_card", map[string]any{"id": added.Card.ID, "quality": 7.0})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
	_, err = d.Invoke(context.Background(), "add_card", map[string]any{"front": "   "})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}
