package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

const (
	// KeyPrefixEntry is the prefix for entry aggregate keys
	KeyPrefixEntry = "dockmetrics:entry:"
	// KeyPrefixMetrics is the prefix for per-partner metrics rows
	KeyPrefixMetrics = "dockmetrics:metrics:"
	// KeyPrefixPartners is the prefix for partner index sets
	KeyPrefixPartners = "dockmetrics:partners:"
	// KeyAllEntries is the key for the set of all entry IDs
	KeyAllEntries = "dockmetrics:entries:all"
	// KeyPending is the set of versions with metrics newer than their last aggregation
	KeyPending = "dockmetrics:pending"
)

// segmentSep separates entry ID, version name and partner inside keys and
// KeyPending members. Entry IDs and version names may contain ':'.
const segmentSep = "\x1f"

// EntryKey returns the Redis key for an entry
func EntryKey(id string) string {
	return KeyPrefixEntry + id
}

// AllEntriesKey returns the key for the set of all entry IDs
func AllEntriesKey() string {
	return KeyAllEntries
}

// MetricsKey returns the key of the metrics row for one (version, partner) pair.
// The ALL rollup is stored under the same scheme.
func MetricsKey(entryID, version string, p domain.Partner) string {
	return KeyPrefixMetrics + entryID + segmentSep + version + segmentSep + string(p)
}

// VersionPartnersKey is the set of partners that have a metrics row for a version.
func VersionPartnersKey(entryID, version string) string {
	return KeyPrefixPartners + "version:" + entryID + segmentSep + version
}

// ExecutionPartnersKey is the set of partners that submitted run executions for any version of an entry.
func ExecutionPartnersKey(entryID string) string {
	return KeyPrefixPartners + "executions:" + entryID
}

// ValidationPartnersKey is the set of partners that submitted validations for any version of an entry.
func ValidationPartnersKey(entryID string) string {
	return KeyPrefixPartners + "validations:" + entryID
}

// VersionRef names one version of one entry.
type VersionRef struct {
	EntryID     string `json:"entryId"`
	VersionName string `json:"versionName"`
}

func (r VersionRef) String() string {
	return r.EntryID + ":" + r.VersionName
}

func pendingMember(entryID, version string) string {
	return entryID + segmentSep + version
}

// ParsePendingMember extracts the version reference from a KeyPending member
func ParsePendingMember(member string) (VersionRef, error) {
	id, version, ok := strings.Cut(member, segmentSep)
	if !ok || id == "" || version == "" {
		return VersionRef{}, fmt.Errorf("invalid pending member: %q", member)
	}
	return VersionRef{EntryID: id, VersionName: version}, nil
}
