package repository

import (
	"fmt"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
)

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toStringPtr(val any) *string {
	if val == nil {
		return nil
	}
	s := toString(val)
	if s == "" {
		return nil
	}
	return &s
}

// toFloatPtr keeps the distinction between a missing priority and zero.
func toFloatPtr(val any) *float64 {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	default:
		return nil
	}
	return &f
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toPerson(val any) (domain.Person, bool) {
	m, ok := val.(map[string]any)
	if !ok {
		return domain.Person{}, false
	}
	id := toString(m["id"])
	if id == "" {
		return domain.Person{}, false
	}
	return domain.Person{ID: id, FullName: toStringPtr(m["fullName"])}, true
}

func countsFromRecords(records []graph.Record) domain.GraphCounts {
	if len(records) == 0 {
		return domain.GraphCounts{}
	}
	return domain.GraphCounts{
		NodeCount: toInt64(records[0]["nodeCount"]),
		EdgeCount: toInt64(records[0]["edgeCount"]),
	}
}

func floatParam(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringParam(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
