// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline gates outbound requests made by network-backed tools.
//
// A Policy always rejects non-http(s) schemes. When Enabled it additionally
// rejects every host that is not a loopback address, so a machine without
// network access fails fast instead of waiting for a timeout.
//
// # Usage
//
//	p := offline.Policy{Enabled: cfg.Tools.Offline}
//	if err := p.Check(endpoint); err != nil {
//		return err
//	}
package offline
