package blob

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

// Object keys have the form
//
//	<kind>/<registry>/<namespace>/<repository>/<version>/<platform>/<file>
//
// where kind is "tool" for bare TRS ids and the prefix without '#' otherwise.
// A trailing tool or workflow name is folded into the repository segment as
// url-encoded "<repository>/<name>", so ids with and without a name never
// share a prefix.
const (
	keyDelimiter   = "/"
	toolKind       = "tool"
	idSegments     = 5 // kind + four path segments
	repositoryIdx  = 3
	nameIdx        = 4
	keySegments    = 7
	kindIdx        = 0
	versionIdx     = 4
	platformIdx    = 5
	fileIdx        = 6
	jsonFileSuffix = ".json"
)

// PartialKey converts a TRS id into the key prefix shared by all of its objects.
func PartialKey(trsID string) string {
	partial := trsID
	if strings.HasPrefix(partial, "#") {
		partial = strings.TrimPrefix(partial, "#")
	} else {
		partial = toolKind + keyDelimiter + partial
	}

	split := strings.Split(partial, keyDelimiter)
	if len(split) != idSegments {
		return partial
	}
	split[repositoryIdx] = url.QueryEscape(split[repositoryIdx] + keyDelimiter + split[nameIdx])
	return strings.Join(split[:idSegments-1], keyDelimiter)
}

// VersionPrefix is the listing prefix of every object stored for one version.
func VersionPrefix(trsID, version string) string {
	return PartialKey(trsID) + keyDelimiter + url.QueryEscape(version) + keyDelimiter
}

// ObjectKey builds the key of one submission file.
func ObjectKey(trsID, version string, platform domain.Partner, file string) string {
	return strings.Join([]string{
		PartialKey(trsID),
		url.QueryEscape(version),
		url.QueryEscape(string(platform)),
		url.QueryEscape(file),
	}, keyDelimiter)
}

// FileName names a submission file after its arrival time and id.
func FileName(at time.Time, id string) string {
	return fmt.Sprintf("%d-%s%s", at.UnixMilli(), id, jsonFileSuffix)
}

// KeyInfo is the decoded form of an object key.
type KeyInfo struct {
	TRSID    string         `json:"trsId"`
	Version  string         `json:"version"`
	Platform domain.Partner `json:"platform"`
	File     string         `json:"file"`
}

// ParseKey reverses ObjectKey.
func ParseKey(key string) (KeyInfo, error) {
	parts := strings.Split(key, keyDelimiter)
	if len(parts) != keySegments {
		return KeyInfo{}, fmt.Errorf("%w: key %q has %d segments, want %d", ErrInvalidInput, key, len(parts), keySegments)
	}

	id, err := url.QueryUnescape(strings.Join(parts[kindIdx+1:versionIdx], keyDelimiter))
	if err != nil {
		return KeyInfo{}, fmt.Errorf("%w: key %q: %v", ErrInvalidInput, key, err)
	}
	switch kind := parts[kindIdx]; kind {
	case toolKind:
	case "workflow", "service", "notebook":
		id = "#" + kind + keyDelimiter + id
	default:
		return KeyInfo{}, fmt.Errorf("%w: key %q has unknown entry kind %q", ErrInvalidInput, key, kind)
	}

	decoded := make([]string, 0, 3)
	for _, raw := range parts[versionIdx:] {
		v, err := url.QueryUnescape(raw)
		if err != nil {
			return KeyInfo{}, fmt.Errorf("%w: key %q: %v", ErrInvalidInput, key, err)
		}
		decoded = append(decoded, v)
	}

	return KeyInfo{
		TRSID:    id,
		Version:  decoded[0],
		Platform: domain.Partner(decoded[platformIdx-versionIdx]),
		File:     decoded[fileIdx-versionIdx],
	}, nil
}
