package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/logger"
)

type response struct {
	Keyword  any             `json:"keyword"`
	Category any             `json:"category"`
	Queries  json.RawMessage `json:"queries"`
}

// ParseCategory extracts and validates the queries for keyword/category from raw output.
// Echo mismatches on keyword or category are logged and ignored; queries are authoritative.
func ParseCategory(ctx context.Context, raw, keyword string, category domain.Category) (domain.QuerySet, error) {
	candidate := ExtractJSON(raw)

	var resp response
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", domain.ErrMalformedJSON)
	}

	checkEcho(ctx, resp, keyword, category)

	queries, err := decodeQueries(resp.Queries)
	if err != nil {
		return nil, err
	}

	qs := Dedupe(queries)
	if len(qs) != domain.QueriesPerCategory {
		return nil, domain.NewIncompleteResult(len(qs))
	}
	return qs, nil
}

func checkEcho(ctx context.Context, resp response, keyword string, category domain.Category) {
	log := logger.FromContext(ctx)
	if got := scalarString(resp.Keyword); got != "" && !strings.EqualFold(got, keyword) {
		log.Debug("Keyword echo mismatch", zap.String("expected", keyword), zap.String("got", got))
	}
	if got := scalarString(resp.Category); !strings.EqualFold(got, string(category)) {
		log.Debug("Category echo mismatch", zap.String("expected", string(category)), zap.String("got", got))
	}
}

func decodeQueries(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing queries array", domain.ErrMalformedJSON)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("%w: queries is not an array", domain.ErrMalformedJSON)
	}

	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if s := scalarString(e); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// scalarString coerces strings, numbers and booleans to a trimmed string.
// Everything else yields "".
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Dedupe drops empty strings and case-insensitive duplicates, keeping first-seen order and casing.
func Dedupe(items []string) domain.QuerySet {
	seen := make(map[string]struct{}, len(items))
	out := make(domain.QuerySet, 0, len(items))
	for _, it := range items {
		s := strings.TrimSpace(it)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
