package model

import "strings"

var iconTable = []struct {
	keyword string
	icon    string
}{
	{"work", "briefcase"},
	{"game", "gamecontroller"},
	{"social", "person.2"},
	{"photo", "photo"},
	{"music", "music.note"},
}

// IconFor picks a symbol name for a folder from keywords in its name.
func IconFor(folderName string) string {
	lower := strings.ToLower(folderName)
	for _, row := range iconTable {
		if strings.Contains(lower, row.keyword) {
			return row.icon
		}
	}
	return "folder"
}
