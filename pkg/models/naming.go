package models

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// RootFolderMarker is the suffix the remote service gives every project's
// synthetic top folder, e.g. "ce3efb9e-8f7e-4d01-b8a6-8855b526465c-root-folder".
const RootFolderMarker = "root-folder"

// SpecialFolderPrefixes are the names (or name prefixes) of system folders
// that sit directly under the root folder and are hidden from user views.
var SpecialFolderPrefixes = []string{
	"submittals-attachments",
	"checklist_",
	"dailylog_",
	"issue_",
	"ProjectTb",
	"COST Root Folder",
}

var (
	guidRootMu    sync.Mutex
	guidRootCache = map[string]*regexp.Regexp{}
)

func guidRootPattern(suffix string) *regexp.Regexp {
	guidRootMu.Lock()
	defer guidRootMu.Unlock()
	if re, ok := guidRootCache[suffix]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)^[0-9A-Z]{8}-([0-9A-Z]{4}-){3}[0-9A-Z]{12}` + regexp.QuoteMeta(suffix) + `$`)
	guidRootCache[suffix] = re
	return re
}

// IsGUIDRoot reports whether name is a GUID root folder name.
func IsGUIDRoot(name string) bool {
	return IsGUIDRootSuffix(name, "-"+RootFolderMarker)
}

// IsGUIDRootSuffix matches a dashed GUID followed by suffix (which may be empty).
func IsGUIDRootSuffix(name, suffix string) bool {
	if name == "" {
		return false
	}
	return guidRootPattern(strings.TrimSpace(suffix)).MatchString(strings.TrimSpace(name))
}

// IsRootFolder reports whether n is named like the synthetic root folder.
func IsRootFolder(n *Node) bool {
	return n.IsFolder() && strings.Contains(n.Name, RootFolderMarker)
}

// HasSpecialPrefix reports whether name starts with a special folder prefix.
func HasSpecialPrefix(name string) bool {
	for _, p := range SpecialFolderPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// IsSpecialFolder reports whether n is a system folder. Besides the fixed
// prefixes, some system folders embed the project ID in their name.
func IsSpecialFolder(n *Node, projectID string) bool {
	if !n.IsFolder() {
		return false
	}
	if HasSpecialPrefix(n.Name) {
		return true
	}
	projectID = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(projectID), "b.")))
	if projectID == "" {
		return false
	}
	return strings.Contains(strings.ToLower(n.Name), projectID)
}

// ParseVersion extracts the version number from a version URN such as
// "urn:adsk.wipprod:fs.file:vf.XeIA4?version=3". It returns 0 when absent.
func ParseVersion(urn string) int {
	idx := strings.LastIndexByte(urn, '?')
	if idx < 0 || idx >= len(urn)-1 {
		return 0
	}
	parts := strings.FieldsFunc(urn[idx+1:], func(r rune) bool { return r == '=' })
	if len(parts) < 2 {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return v
}
