// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigrun-tools/internal/schedule"
)

// =============================================================================
// CLOCK
// =============================================================================

// TimeResult is the value of get_time and get_time_in.
type TimeResult struct {
	Zone    string `json:"zone"`
	Time    string `json:"time"`
	Weekday string `json:"weekday"`
	Unix    int64  `json:"unix"`
}

func (r TimeResult) String() string {
	return r.Time + " (" + r.Zone + ")"
}

func timeIn(now time.Time, loc *time.Location) TimeResult {
	t := now.In(loc)
	return TimeResult{
		Zone:    loc.String(),
		Time:    t.Format(time.RFC3339),
		Weekday: t.Weekday().String(),
		Unix:    t.Unix(),
	}
}

func clockTools(deps Deps) []Entry {
	return []Entry{
		Pure(Descriptor{
			Name:        "get_time",
			Description: "Current date and time in the configured time zone.",
		}, func(_ context.Context, _ Args) (any, error) {
			return timeIn(deps.Now(), deps.Location), nil
		}),

		Pure(Descriptor{
			Name:        "get_time_in",
			Description: "Current date and time in an IANA time zone such as Europe/Berlin.",
			Params: []Parameter{
				{Name: "zone", Type: TypeString, Required: true, Description: "IANA zone name"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			loc, err := schedule.LoadZone(args.String("zone"))
			if err != nil {
				return nil, invalidArg("zone", "%v", err)
			}
			return timeIn(deps.Now(), loc), nil
		}),
	}
}

// =============================================================================
// TEXT
// =============================================================================

// maxPasswordLength bounds password_generate.
const maxPasswordLength = 128

const (
	passwordLetters = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordSymbols = "!#$%&*+-=?@^_"
)

// Slugify lowercases s, strips accents and joins the remaining letters and
// digits with single hyphens. ß becomes ss.
func Slugify(s string) string {
	s = strings.ReplaceAll(s, "ß", "ss")
	var b strings.Builder
	hyphen := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(unicode.ToLower(r))
		default:
			hyphen = true
		}
	}
	return b.String()
}

func generatePassword(length int, symbols bool) (string, error) {
	alphabet := passwordLetters
	if symbols {
		alphabet += passwordSymbols
	}
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func textTools() []Entry {
	return []Entry{
		Pure(Descriptor{
			Name:        "slugify",
			Description: "Turn text into a URL slug.",
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Text to convert"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			return Slugify(args.String("text")), nil
		}),

		Pure(Descriptor{
			Name:        "sha256_string",
			Description: "SHA-256 of a string as lowercase hex.",
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Text to hash"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			sum := sha256.Sum256([]byte(args.String("text")))
			return hex.EncodeToString(sum[:]), nil
		}),

		Pure(Descriptor{
			Name:        "b64_encode",
			Description: "Standard base64 encoding of a string.",
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Text to encode"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			return base64.StdEncoding.EncodeToString([]byte(args.String("text"))), nil
		}),

		Pure(Descriptor{
			Name:        "b64_decode",
			Description: "Decode standard base64 into text.",
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Base64 input"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(args.String("text")))
			if err != nil {
				return nil, invalidArg("text", "not valid base64")
			}
			if !utf8.Valid(b) {
				return nil, invalidArg("text", "decoded bytes are not UTF-8 text")
			}
			return string(b), nil
		}),

		Pure(Descriptor{
			Name:        "regex_replace",
			Description: "Replace every match of a regular expression (RE2 syntax). $1 in the replacement refers to a group.",
			Params: []Parameter{
				{Name: "pattern", Type: TypeString, Required: true, Description: "Regular expression"},
				{Name: "replacement", Type: TypeString, Required: true, Description: "Replacement text"},
				{Name: "text", Type: TypeString, Required: true, Description: "Input text"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			re, err := regexp.Compile(args.String("pattern"))
			if err != nil {
				return nil, invalidArg("pattern", "%v", err)
			}
			return re.ReplaceAllString(args.String("text"), args.String("replacement")), nil
		}),

		Pure(Descriptor{
			Name:        "password_generate",
			Description: "Random password from unambiguous letters and digits, optionally with symbols.",
			Params: []Parameter{
				{Name: "length", Type: TypeInteger, Default: 16, Description: "Length, 8 to 128"},
				{Name: "symbols", Type: TypeBoolean, Default: true, Description: "Include symbols"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			n := args.Int("length")
			if n < 8 || n > maxPasswordLength {
				return nil, invalidArg("length", "must be between 8 and %d", maxPasswordLength)
			}
			return generatePassword(int(n), args.Bool("symbols"))
		}),
	}
}
