package autorecord

import "strings"

// invalid filename characters, stripped from zone names before they are
// used in paths or filename patterns.
const invalidPathChars = `\/:*?"<>|`

// ComputeLocation builds the recording-location override for the next
// start from the configured base location and the current zone name.
// With no resolvable zone it returns the empty location (no override).
// The computation is pure; callers run it immediately before every start
// because the player's zone can change between encounters.
func ComputeLocation(base RecordingLocation, zone string, includeTerritory, zoneAsSuffix bool) RecordingLocation {
	zone = sanitizeZone(zone)
	if zone == "" {
		return RecordingLocation{}
	}

	loc := base
	if includeTerritory {
		loc.Directory = joinRemotePath(base.Directory, zone)
	}
	if zoneAsSuffix && base.FilenamePattern != "" {
		loc.FilenamePattern = base.FilenamePattern + "_" + zone
	}
	return loc
}

// joinRemotePath appends elem to base using the separator convention the
// base path already uses. The directory lives on the backend's host, which
// may not share this process's path conventions.
func joinRemotePath(base, elem string) string {
	if base == "" {
		return elem
	}
	sep := "/"
	if strings.Contains(base, `\`) {
		sep = `\`
	}
	return strings.TrimRight(base, sep) + sep + elem
}

func sanitizeZone(zone string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidPathChars, r) {
			return -1
		}
		return r
	}, zone)
}
