// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule selects due todos and reminders.
//
// Due values are stored as strings. RFC 3339 values with an offset are
// absolute; the zone-less forms ("2025-03-01T09:00", "2025-03-01 09:00",
// "2025-03-01") are interpreted in the configured default zone at query time.
// Selection is a pure function of the items and the reference time and never
// marks anything.
package schedule
