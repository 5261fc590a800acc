package logging

import "strings"

// FormatSubject builds the item/stage subject string used in console output.
// Long identifiers are shortened to their first segment.
func FormatSubject(itemID, stage string) string {
	itemID = shortID(strings.TrimSpace(itemID))
	stage = strings.TrimSpace(stage)
	switch {
	case itemID != "" && stage != "":
		return "Doc " + itemID + " (" + stage + ")"
	case itemID != "":
		return "Doc " + itemID
	default:
		return stage
	}
}

func shortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok && head != "" {
		return head
	}
	return id
}
