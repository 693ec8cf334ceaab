// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"io"
	"net/http"
	"unicode"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// fetcher performs rate limited GET requests for one upstream service.
type fetcher struct {
	service string
	deps    Deps
	limiter *rate.Limiter
}

func newFetcher(service string, deps Deps, perMin int) *fetcher {
	return &fetcher{service: service, deps: deps, limiter: perMinute(perMin)}
}

// get returns the status code and body of rawURL. Transport failures are
// UpstreamFailure; the caller interprets status codes.
func (f *fetcher) get(ctx context.Context, rawURL string) (int, []byte, error) {
	if err := f.deps.Offline.Check(rawURL); err != nil {
		return 0, nil, upstream(err, "%s unavailable: %v", f.service, err)
	}
	if !f.limiter.Allow() {
		return 0, nil, upstream(nil, "%s rate limit reached, try again shortly", f.service)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return 0, nil, upstream(err, "%s request could not be built", f.service)
	}
	req.Header.Set("User-Agent", f.deps.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.deps.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, upstream(err, "%s unreachable", f.service)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, upstream(err, "%s response could not be read", f.service)
	}
	return resp.StatusCode, body, nil
}

func statusError(service string, code int, detail string) *Error {
	if detail == "" {
		detail = http.StatusText(code)
	}
	return upstream(nil, "%s returned HTTP %d: %s", service, code, detail)
}

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
