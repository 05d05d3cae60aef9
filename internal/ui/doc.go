// Package ui implements an interactive terminal interface for playlist imports using bubbletea's Elm architecture.
//
// The TUI walks through a single import:
//  1. [SourceView] : Paste a NetEase or QQ Music share link
//  2. [PreviewView] : Browse the fetched songs
//  3. [ConfirmView] : Pick the import mode and confirm
//  4. [ImportView] : Follow matching progress
//  5. [ResultView] : Review the outcome and the songs that were not found
//
// The [Model] implements the standard Init/Update/View pattern and receives messages through the [Msg] union type.
// Progress updates flow through a channel from the ImportEngine, so the run never blocks on rendering.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, m, q) with contextual help from charmbracelet/bubbles/help.
package ui
