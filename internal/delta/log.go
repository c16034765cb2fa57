package delta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	logDirName    = "_delta_log"
	commitPadding = 20
)

var commitFilePattern = regexp.MustCompile(`^(\d{20})\.json$`)

// CommitKey returns the log key for a version, e.g.
// _delta_log/00000000000000000007.json.
func CommitKey(version int64) string {
	return fmt.Sprintf("%s/%0*d.json", logDirName, commitPadding, version)
}

// ParseCommitKey extracts the version from a log key. The second return
// is false for keys that are not commit files (checkpoints, temp files).
func ParseCommitKey(key string) (int64, bool) {
	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	match := commitFilePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	version, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return version, true
}
