// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders the stored documents as a single shareable file.
//
// A Bundle is read from a docstore.Store in one pass and handed to an
// Exporter for the target format.
//
// # Formats
//
//   - markdown: YAML front matter and one section per document
//   - json: The bundle verbatim, suitable for re-import tooling
//   - html: A standalone page with embedded CSS (dark or light)
//
// # Usage
//
//	b, err := export.Load(docs, time.Now(), loc)
//	path, err := export.ExportToFile(b, export.NewMarkdownExporter(opts), opts)
package export
