// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/rigrun-tools/internal/util"
)

// maxExtractRunes caps the extract returned to callers.
const maxExtractRunes = 2000

// WikiSummary is the value of wiki_summary.
type WikiSummary struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Extract        string `json:"extract"`
	URL            string `json:"url,omitempty"`
	Disambiguation bool   `json:"disambiguation,omitempty"`
}

func (w WikiSummary) String() string {
	if w.Description != "" {
		return w.Title + " (" + w.Description + "): " + w.Extract
	}
	return w.Title + ": " + w.Extract
}

type wikiResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Detail      string `json:"detail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func wikiTool(deps Deps) Entry {
	cfg := deps.Wikipedia
	f := newFetcher("wikipedia", deps, cfg.RequestsPerMin)
	base := strings.TrimRight(cfg.BaseURL, "/")

	return Cacheable(Descriptor{
		Name:        "wiki_summary",
		Description: "Short summary of a Wikipedia article.",
		Params: []Parameter{
			{Name: "title", Type: TypeString, Required: true, Description: "Article title"},
		},
		TTL:     cfg.TTL,
		Timeout: cfg.Timeout,
	}, func(ctx context.Context, args Args) (any, error) {
		title := strings.TrimSpace(args.String("title"))
		if title == "" {
			return nil, invalidArg("title", "must not be empty")
		}
		endpoint := base + "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

		status, body, err := f.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, invalidArg("title", "no article titled %q", title)
		}

		var resp wikiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			if status != http.StatusOK {
				return nil, statusError(f.service, status, "")
			}
			return nil, upstream(err, "wikipedia sent an unreadable response")
		}
		if status != http.StatusOK {
			return nil, statusError(f.service, status, resp.Detail)
		}

		return WikiSummary{
			Title:          resp.Title,
			Description:    resp.Description,
			Extract:        util.TruncateRunes(resp.Extract, maxExtractRunes),
			URL:            resp.ContentURLs.Desktop.Page,
			Disambiguation: resp.Type == "disambiguation",
		}, nil
	})
}
