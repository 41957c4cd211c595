package lifecycle

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// archivedNameRegexp splits an archived directory name into the original
// skill name and the encoded timestamp. The millisecond group is optional
// for backward compatibility with names archived before milliseconds were
// added to the encoding.
var archivedNameRegexp = regexp.MustCompile(`^(.+?)_(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}(?:-\d{3})?)Z$`)

const archiveTimestampLayout = "2006-01-02T15-04-05"

// ArchivedSkill is the derived view of one entry under the archive root.
type ArchivedSkill struct {
	OriginalName string    `json:"originalName"`
	ArchivedName string    `json:"archivedName"`
	ArchivedPath string    `json:"archivedPath"`
	ArchivedAt   time.Time `json:"archivedAt"`
}

// encodeArchiveTimestamp renders t as a directory-name-safe UTC timestamp:
// ISO-8601 with colons and the millisecond dot replaced by dashes.
func encodeArchiveTimestamp(t time.Time) string {
	encoded := t.UTC().Format("2006-01-02T15:04:05.000Z")
	encoded = strings.ReplaceAll(encoded, ":", "-")
	encoded = strings.ReplaceAll(encoded, ".", "-")
	return encoded
}

// decodeArchiveTimestamp parses the encoded timestamp recovered from an
// archived directory name, with or without the millisecond suffix. The
// `-mmm` group cannot be expressed in a reference layout (Go only treats
// `.000` directly after the seconds as fractional), so it is split off and
// parsed separately.
func decodeArchiveTimestamp(encoded string) (time.Time, error) {
	base := encoded
	var millis time.Duration
	if len(encoded) == len(archiveTimestampLayout)+4 && encoded[len(archiveTimestampLayout)] == '-' {
		ms, err := strconv.Atoi(encoded[len(archiveTimestampLayout)+1:])
		if err != nil || ms < 0 {
			return time.Time{}, errors.Errorf("invalid archive timestamp %q", encoded)
		}
		base = encoded[:len(archiveTimestampLayout)]
		millis = time.Duration(ms) * time.Millisecond
	}

	t, err := time.ParseInLocation(archiveTimestampLayout, base, time.UTC)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid archive timestamp %q", encoded)
	}
	return t.Add(millis), nil
}

// archiveDirName builds the directory name a skill is archived under.
func archiveDirName(name string, archivedAt time.Time) string {
	return name + "_" + encodeArchiveTimestamp(archivedAt)
}

// parseArchivedName recovers the original skill name and archive time from
// an archived directory name. ok is false if the name does not follow the
// archive encoding.
func parseArchivedName(dirName string) (originalName string, archivedAt time.Time, ok bool) {
	matches := archivedNameRegexp.FindStringSubmatch(dirName)
	if matches == nil {
		return "", time.Time{}, false
	}
	t, err := decodeArchiveTimestamp(matches[2])
	if err != nil {
		return "", time.Time{}, false
	}
	return matches[1], t, true
}
