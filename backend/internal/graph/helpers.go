package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"bookmap/backend/internal/geo"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getMapFromRecord(record *neo4j.Record, key string) map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	m, _ := val.(map[string]interface{})
	return m
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getFloat64PtrFromMap(m map[string]interface{}, key string) *float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return nil
	}
	switch v := val.(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func countryFromMap(m map[string]interface{}) Country {
	return Country{
		UID:  getStringFromMap(m, "uid", ""),
		Name: getStringFromMap(m, "name", ""),
	}
}

func regionFromMap(m map[string]interface{}) Region {
	return Region{
		UID:  getStringFromMap(m, "uid", ""),
		Name: getStringFromMap(m, "name", ""),
	}
}

func cityFromMap(m map[string]interface{}) City {
	return City{
		UID:           getStringFromMap(m, "uid", ""),
		Name:          getStringFromMap(m, "name", ""),
		Latitude:      getFloat64PtrFromMap(m, "latitude"),
		Longitude:     getFloat64PtrFromMap(m, "longitude"),
		CoordinateKey: getStringFromMap(m, "coordinate_key", ""),
		Geohash:       getStringFromMap(m, "geohash", ""),
		S2Cell:        getStringFromMap(m, "s2_cell", ""),
	}
}

func authorFromMap(m map[string]interface{}) Author {
	return Author{
		GoodreadsID:   getStringFromMap(m, "goodreads_id", ""),
		Name:          getStringFromMap(m, "name", ""),
		GoodreadsLink: getStringFromMap(m, "goodreads_link", ""),
	}
}

// nodeFromMap reads {uid, name, labels} as returned by the parent and ancestor queries
func nodeFromMap(m map[string]interface{}) (Node, bool) {
	labels, _ := m["labels"].([]interface{})
	for _, l := range labels {
		label, _ := l.(string)
		if kind, ok := geo.KindForLabel(label); ok {
			return Node{
				Kind: kind,
				UID:  getStringFromMap(m, "uid", ""),
				Name: getStringFromMap(m, "name", ""),
			}, true
		}
	}
	return Node{}, false
}

// nullableString maps "" to a Cypher null so unique constraints ignore it
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
