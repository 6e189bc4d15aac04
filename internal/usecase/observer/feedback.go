package observer

import (
	"fmt"
	"strings"

	"webagent/internal/domain/entity"
)

const maxPhrases = 3

type pattern struct {
	phrase func(n entity.NodeInfo) string
	match  func(n entity.NodeInfo, haystack string) bool
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func quoted(prefix string, n entity.NodeInfo) string {
	if n.Text == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %q", prefix, n.Text)
}

var patterns = []pattern{
	{
		phrase: func(entity.NodeInfo) string { return "Dialog opened" },
		match: func(n entity.NodeInfo, h string) bool {
			return n.Role == "dialog" || n.Role == "alertdialog" || containsAny(strings.ToLower(n.Class), "modal", "dialog", "popup")
		},
	},
	{
		phrase: func(n entity.NodeInfo) string { return quoted("Error shown", n) },
		match: func(_ entity.NodeInfo, h string) bool {
			return containsAny(h, "error", "invalid", "failed", "incorrect")
		},
	},
	{
		phrase: func(n entity.NodeInfo) string { return quoted("Success message shown", n) },
		match: func(_ entity.NodeInfo, h string) bool {
			return containsAny(h, "success", "thank you", "confirmed", "welcome")
		},
	},
	{
		phrase: func(entity.NodeInfo) string { return "Loading indicator appeared" },
		match: func(_ entity.NodeInfo, h string) bool {
			return containsAny(h, "loading", "spinner", "progressbar")
		},
	},
	{
		phrase: func(entity.NodeInfo) string { return "Form submitted" },
		match: func(_ entity.NodeInfo, h string) bool {
			return containsAny(h, "submitted", "has been sent", "message sent")
		},
	},
	{
		phrase: func(entity.NodeInfo) string { return "Cart updated" },
		match: func(_ entity.NodeInfo, h string) bool {
			return containsAny(h, "cart", "basket", "checkout")
		},
	},
}

// feedback builds the one-line summary: navigation first, then a title
// change, then up to three pattern phrases, then counts.
func feedback(report entity.ChangeReport, changes []change) string {
	if report.URLChanged {
		return "Navigated to " + pathOf(report.NewURL)
	}
	if report.TitleChanged {
		return fmt.Sprintf("Page title changed to %q", report.NewTitle)
	}

	var phrases []string
	used := make(map[int]bool)
	for _, c := range changes {
		if c.Type == entity.ChangeRemoved {
			continue
		}
		if c.Type == entity.ChangeModified && !revealing(c) {
			continue
		}
		h := strings.ToLower(strings.Join([]string{c.node.Role, c.node.Class, c.node.ID, c.node.Text}, " "))
		for i, p := range patterns {
			if used[i] || !p.match(c.node, h) {
				continue
			}
			used[i] = true
			phrases = append(phrases, p.phrase(c.node))
			break
		}
		if len(phrases) == maxPhrases {
			break
		}
	}
	if len(phrases) > 0 {
		return strings.Join(phrases, "; ")
	}

	if len(changes) == 0 {
		return feedbackNoChanges
	}
	var added, removed, modified int
	for _, c := range changes {
		switch c.Type {
		case entity.ChangeAdded:
			added++
		case entity.ChangeRemoved:
			removed++
		default:
			modified++
		}
	}
	return fmt.Sprintf("%d added, %d removed, %d modified", added, removed, modified)
}

// revealing reports attribute changes that make an element appear.
func revealing(c change) bool {
	switch c.Attribute {
	case "aria-hidden", "hidden", "aria-expanded":
		return true
	}
	return false
}
