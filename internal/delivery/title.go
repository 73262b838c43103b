// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package delivery

import (
	"golang.org/x/text/unicode/norm"

	"github.com/aurachat/aurachat/internal/util"
)

// DefaultTitle names a conversation before (or instead of) a derived title.
const DefaultTitle = "New chat"

// maxTitleRunes bounds a derived conversation title.
const maxTitleRunes = 48

// DeriveTitle produces a conversation title from the first user message:
// first line only, whitespace runs collapsed, at most 48 runes. Blank input
// falls back to DefaultTitle. Pure, no I/O.
func DeriveTitle(text string) string {
	title := util.CollapseWhitespace(util.FirstLine(text))
	title = norm.NFC.String(title)
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	return title
}
