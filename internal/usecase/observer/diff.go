package observer

import (
	"fmt"
	"net/url"
	"strings"

	"webagent/internal/domain/entity"
)

var significantAttributes = map[string]bool{
	"disabled": true, "hidden": true, "aria-hidden": true, "aria-expanded": true,
	"value": true, "checked": true, "selected": true,
}

var classKeywords = []string{"modal", "dialog", "popup", "menu", "dropdown", "toast", "alert"}

type change struct {
	entity.DOMChange
	node entity.NodeInfo
}

// Reduce classifies raw records, drops cosmetic attribute changes and keeps
// one change per (type, target, attribute).
func Reduce(before, after entity.PageInfo, records []entity.MutationRecord) entity.ChangeReport {
	seen := make(map[string]bool)
	var changes []change
	add := func(t entity.ChangeType, node entity.NodeInfo, attr, desc string) {
		target := describeTarget(node)
		key := string(t) + "|" + target + "|" + attr
		if seen[key] {
			return
		}
		seen[key] = true
		changes = append(changes, change{
			DOMChange: entity.DOMChange{Type: t, Target: target, Attribute: attr, Description: desc},
			node:      node,
		})
	}

	for _, r := range records {
		switch r.Kind {
		case entity.MutationChildList:
			for _, n := range r.Added {
				if n.Tag == "#text" {
					add(entity.ChangeText, r.Target, "", "text changed in "+describeTarget(r.Target))
					continue
				}
				add(entity.ChangeAdded, n, "", "added "+describeWithText(n))
			}
			for _, n := range r.Removed {
				if n.Tag == "#text" {
					add(entity.ChangeText, r.Target, "", "text changed in "+describeTarget(r.Target))
					continue
				}
				add(entity.ChangeRemoved, n, "", "removed "+describeWithText(n))
			}
		case entity.MutationAttributes:
			if !significantAttributes[r.AttributeName] {
				continue
			}
			add(entity.ChangeModified, r.Target, r.AttributeName,
				fmt.Sprintf("%s changed on %s", r.AttributeName, describeTarget(r.Target)))
		case entity.MutationCharacterData:
			add(entity.ChangeText, r.Target, "", "text changed in "+describeWithText(r.Target))
		}
	}

	report := entity.ChangeReport{Mutations: make([]entity.DOMChange, 0, len(changes))}
	for _, c := range changes {
		report.Mutations = append(report.Mutations, c.DOMChange)
	}
	if after.URL != before.URL {
		report.URLChanged = true
		report.NewURL = after.URL
	}
	if after.Title != before.Title {
		report.TitleChanged = true
		report.NewTitle = after.Title
	}
	report.VerbalFeedback = feedback(report, changes)
	return report
}

// describeTarget prefers the ARIA role, then a class keyword, then the tag.
func describeTarget(n entity.NodeInfo) string {
	base := n.Tag
	if n.Role != "" {
		base = n.Role
	} else if kw := classKeyword(n.Class); kw != "" {
		base = kw
	}
	if n.ID != "" {
		base += "#" + n.ID
	}
	return base
}

func describeWithText(n entity.NodeInfo) string {
	d := describeTarget(n)
	if n.Text != "" {
		d += fmt.Sprintf(" %q", n.Text)
	}
	return d
}

func classKeyword(class string) string {
	lower := strings.ToLower(class)
	for _, kw := range classKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		if err == nil && u.Host != "" {
			return "/"
		}
		return raw
	}
	return u.Path
}
