package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Config carries the tunables of the audit pipeline. Construct once at
// startup with DefaultConfig and adjust; the pipeline treats it as read-only
// afterwards.
type Config struct {
	// EnableAutomaticLogging is the master switch for the lifecycle and
	// authentication adapters. Manual Recorder calls ignore it.
	EnableAutomaticLogging bool

	// LogFieldChanges disables field diffing entirely when false.
	LogFieldChanges bool

	// MaxMetadataSize caps the JSON-encoded size of a metadata map in bytes.
	MaxMetadataSize int

	// SensitiveFields are lowercase substrings; any field whose name contains
	// one is excluded from tracking and diffing.
	SensitiveFields []string

	// RetentionDays maps an action category to its retention period.
	// Categories absent from the map use DefaultRetentionDays.
	RetentionDays        map[Category]int
	DefaultRetentionDays int

	// RecentCacheTTL bounds how long the query layer may serve cached
	// recent-entry listings.
	RecentCacheTTL time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() *Config {
	return &Config{
		EnableAutomaticLogging: true,
		LogFieldChanges:        true,
		MaxMetadataSize:        10000,
		SensitiveFields: []string{
			"password", "token", "secret", "key", "hash", "salt",
			"credit_card", "ssn", "social_security", "bank_account",
		},
		RetentionDays: map[Category]int{
			CategoryAuthentication: 90,
			CategorySecurity:       730,
			CategoryEntity:         365,
		},
		DefaultRetentionDays: 365,
		RecentCacheTTL:       5 * time.Minute,
	}
}

// IsSensitiveField reports whether the field name matches the sensitive
// field policy. Matching is case-insensitive substring containment, so
// "password_hash" and "ApiToken" both count.
func (c *Config) IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range c.SensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RetentionFor returns the retention period for an action type.
func (c *Config) RetentionFor(action ActionType) time.Duration {
	days, ok := c.RetentionDays[action.Category()]
	if !ok {
		days = c.DefaultRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// fields dropped first when metadata exceeds the size cap.
var bulkyMetadataFields = []string{"user_agent", "request_headers", "response_data"}

// TruncateMetadata shrinks a metadata map until its JSON encoding fits the
// configured cap. Bulky fields are replaced with a marker first, then long
// string values are clipped. The input map is not modified.
func (c *Config) TruncateMetadata(metadata map[string]any) map[string]any {
	if metadata == nil || c.MaxMetadataSize <= 0 {
		return metadata
	}
	if metadataSize(metadata) <= c.MaxMetadataSize {
		return metadata
	}

	truncated := make(map[string]any, len(metadata))
	for k, v := range metadata {
		truncated[k] = v
	}

	for _, field := range bulkyMetadataFields {
		if v, ok := truncated[field]; ok && metadataSize(truncated) > c.MaxMetadataSize {
			truncated[field] = fmt.Sprintf("[TRUNCATED - was %d chars]", len(fmt.Sprint(v)))
		}
	}

	if metadataSize(truncated) > c.MaxMetadataSize {
		for k, v := range truncated {
			if s, ok := v.(string); ok && len(s) > 100 {
				truncated[k] = s[:100] + "..."
			}
		}
	}

	return truncated
}

func metadataSize(metadata map[string]any) int {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		// Unencodable values are stringified at persistence time anyway;
		// estimate via fmt to keep truncation moving.
		return len(fmt.Sprint(metadata))
	}
	return len(encoded)
}
