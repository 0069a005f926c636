package chunking

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/tmc/langchaingo/textsplitter"

	"docingest/pkg/errors"
)

// jsonStrategy splits a JSON document along its structure, targeting
// chunkChars per serialized chunk. List values are flattened during
// splitting; chunks that serialize to a trivial value are dropped and page
// numbers are assigned only to kept chunks.
type jsonStrategy struct {
	chunkChars int
	splitter   textsplitter.TextSplitter
}

func newJSONStrategy(chunkChars int) *jsonStrategy {
	return &jsonStrategy{
		chunkChars: chunkChars,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkChars),
			textsplitter.WithChunkOverlap(0),
		),
	}
}

func (s *jsonStrategy) Chunk(_ context.Context, content []byte, fc FileContext) ([]Fragment, error) {
	var root interface{}
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}

	pieces, err := s.split(root)
	if err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}

	var fragments []Fragment
	page := fc.firstPage()
	for _, piece := range pieces {
		text := serializeJSON(piece)
		if isTrivialJSON(text) {
			continue
		}
		fragments = append(fragments, Fragment{PageNumber: page, Text: text})
		page++
	}
	return fragments, nil
}

func (s *jsonStrategy) split(v interface{}) ([]interface{}, error) {
	if len(serializeJSON(v)) <= s.chunkChars {
		return []interface{}{v}, nil
	}

	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if len(keys) > 1 {
			var out []interface{}
			for _, k := range keys {
				sub, err := s.split(map[string]interface{}{k: t[k]})
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
			}
			return out, nil
		}

		// Single oversized entry: split the value and re-wrap each piece
		// under its key so the context survives.
		key := keys[0]
		subs, err := s.split(t[key])
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, len(subs))
		for _, sub := range subs {
			out = append(out, map[string]interface{}{key: sub})
		}
		return out, nil

	case []interface{}:
		// Lists are flattened: each element splits independently.
		var out []interface{}
		for _, el := range t {
			sub, err := s.split(el)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case string:
		parts, err := s.splitter.SplitText(t)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			out = append(out, part)
		}
		return out, nil

	default:
		// Numbers, booleans, null never exceed the budget on their own.
		return []interface{}{v}, nil
	}
}

func serializeJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func isTrivialJSON(text string) bool {
	switch text {
	case "", "{}", "[]", `""`, "null":
		return true
	}
	return false
}
