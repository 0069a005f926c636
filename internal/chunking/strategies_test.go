package chunking

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/pkg/errors"
)

func TestTextStrategy(t *testing.T) {
	strategy := newTextStrategy(400)

	t.Run("splits into word groups with sequential pages", func(t *testing.T) {
		words := make([]string, 1000)
		for i := range words {
			words[i] = fmt.Sprintf("word%d", i)
		}
		fragments, err := strategy.Chunk(context.Background(), []byte(strings.Join(words, " ")), FileContext{FileName: "a.txt"})
		require.NoError(t, err)
		require.Len(t, fragments, 3)

		assert.Equal(t, 1, fragments[0].PageNumber)
		assert.Equal(t, 2, fragments[1].PageNumber)
		assert.Equal(t, 3, fragments[2].PageNumber)
		assert.Equal(t, 400, countWords(fragments[0].Text))
		assert.Equal(t, 400, countWords(fragments[1].Text))
		assert.Equal(t, 200, countWords(fragments[2].Text))
	})

	t.Run("empty input yields zero fragments", func(t *testing.T) {
		fragments, err := strategy.Chunk(context.Background(), []byte(""), FileContext{FileName: "a.txt"})
		require.NoError(t, err)
		assert.Empty(t, fragments)
	})

	t.Run("whitespace-only input yields zero fragments", func(t *testing.T) {
		fragments, err := strategy.Chunk(context.Background(), []byte("  \n\t  \n"), FileContext{FileName: "a.txt"})
		require.NoError(t, err)
		assert.Empty(t, fragments)
	})

	t.Run("start page offsets the sequence", func(t *testing.T) {
		fragments, err := strategy.Chunk(context.Background(), []byte("one two three"), FileContext{FileName: "a.txt", StartPage: 7})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, 7, fragments[0].PageNumber)
	})
}

func mdSection(title string, words int) string {
	body := make([]string, words)
	for i := range body {
		body[i] = fmt.Sprintf("w%d", i)
	}
	return fmt.Sprintf("## %s\n\n%s\n", title, strings.Join(body, " "))
}

func TestMarkdownStrategy(t *testing.T) {
	t.Run("packs sections toward the target", func(t *testing.T) {
		strategy := newMarkdownStrategy(100, 50)
		source := mdSection("one", 58) + "\n" + mdSection("two", 58) + "\n" + mdSection("three", 58)

		fragments, err := strategy.Chunk(context.Background(), []byte(source), FileContext{FileName: "a.md"})
		require.NoError(t, err)
		require.Len(t, fragments, 3)
		for i, fragment := range fragments {
			assert.Equal(t, i+1, fragment.PageNumber)
			// Each section is 58 body words + 2 heading words, past the
			// 50-word floor; adding a neighbor would overshoot 100.
			assert.Equal(t, 60, countWords(fragment.Text))
		}
	})

	t.Run("small sections merge forward", func(t *testing.T) {
		strategy := newMarkdownStrategy(100, 50)
		source := mdSection("one", 10) + "\n" + mdSection("two", 10) + "\n" + mdSection("three", 10)

		fragments, err := strategy.Chunk(context.Background(), []byte(source), FileContext{FileName: "a.md"})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, 36, countWords(fragments[0].Text))
	})

	t.Run("oversized section is pre-split", func(t *testing.T) {
		strategy := newMarkdownStrategy(100, 50)
		source := mdSection("big", 250)

		fragments, err := strategy.Chunk(context.Background(), []byte(source), FileContext{FileName: "a.md"})
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(fragments), 3)
		for _, fragment := range fragments[:len(fragments)-1] {
			assert.LessOrEqual(t, countWords(fragment.Text), 100)
		}
	})

	t.Run("final undersized fragment still emitted", func(t *testing.T) {
		strategy := newMarkdownStrategy(100, 50)
		source := mdSection("one", 95) + "\n" + mdSection("tail", 10)

		fragments, err := strategy.Chunk(context.Background(), []byte(source), FileContext{FileName: "a.md"})
		require.NoError(t, err)
		require.Len(t, fragments, 2)
		assert.Less(t, countWords(fragments[1].Text), 50)
	})

	t.Run("no headings treats document as one section", func(t *testing.T) {
		strategy := newMarkdownStrategy(100, 50)
		fragments, err := strategy.Chunk(context.Background(), []byte("just a short paragraph"), FileContext{FileName: "a.md"})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
	})
}

func TestHTMLStrategy(t *testing.T) {
	strategy := newHTMLStrategy(newMarkdownStrategy(1200, 600))

	fragments, err := strategy.Chunk(context.Background(),
		[]byte("<html><body><h1>Title</h1><p>Hello world from the parser.</p></body></html>"),
		FileContext{FileName: "a.html"})
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Contains(t, fragments[0].Text, "Hello world from the parser.")
	assert.Contains(t, fragments[0].Text, "Title")
}

func TestJSONStrategy(t *testing.T) {
	t.Run("small document is a single chunk", func(t *testing.T) {
		strategy := newJSONStrategy(600)
		fragments, err := strategy.Chunk(context.Background(), []byte(`{"a":1,"b":"two"}`), FileContext{FileName: "a.json"})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, 1, fragments[0].PageNumber)
	})

	t.Run("oversized object splits per key", func(t *testing.T) {
		strategy := newJSONStrategy(40)
		fragments, err := strategy.Chunk(context.Background(),
			[]byte(`{"alpha":"0123456789012345","beta":"0123456789012345","gamma":"0123456789012345"}`),
			FileContext{FileName: "a.json"})
		require.NoError(t, err)
		require.Len(t, fragments, 3)
		for i, fragment := range fragments {
			assert.Equal(t, i+1, fragment.PageNumber)
			assert.LessOrEqual(t, len(fragment.Text), 40)
		}
	})

	t.Run("trivial chunks dropped without numbering gaps", func(t *testing.T) {
		strategy := newJSONStrategy(30)
		fragments, err := strategy.Chunk(context.Background(),
			[]byte(`["", {}, [], "meaningful value kept", "another value kept here"]`),
			FileContext{FileName: "a.json"})
		require.NoError(t, err)
		require.NotEmpty(t, fragments)
		for i, fragment := range fragments {
			assert.Equal(t, i+1, fragment.PageNumber)
			assert.NotContains(t, []string{`""`, "{}", "[]", "null"}, fragment.Text)
		}
	})

	t.Run("idempotent across runs", func(t *testing.T) {
		strategy := newJSONStrategy(50)
		input := []byte(`{"z":"a fairly long string value that must be divided","a":[1,2,3],"m":{"nested":"structure with content"}}`)

		first, err := strategy.Chunk(context.Background(), input, FileContext{FileName: "a.json"})
		require.NoError(t, err)
		second, err := strategy.Chunk(context.Background(), input, FileContext{FileName: "a.json"})
		require.NoError(t, err)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].Text, second[i].Text)
		}
	})

	t.Run("invalid json is an extraction error", func(t *testing.T) {
		strategy := newJSONStrategy(600)
		_, err := strategy.Chunk(context.Background(), []byte(`{not json`), FileContext{FileName: "a.json"})
		require.Error(t, err)
	})
}

func TestTabularStrategy(t *testing.T) {
	t.Run("header rides along and rows round-trip", func(t *testing.T) {
		strategy := newTabularStrategy(80)

		var sb strings.Builder
		sb.WriteString("id,name,amount\n")
		var wantRows []string
		for i := 1; i <= 12; i++ {
			row := fmt.Sprintf("%d,item-%d,%d.50", i, i, i*10)
			wantRows = append(wantRows, row)
			sb.WriteString(row + "\n")
		}

		fragments, err := strategy.Chunk(context.Background(), []byte(sb.String()), FileContext{FileName: "a.csv"})
		require.NoError(t, err)
		require.Greater(t, len(fragments), 1)

		var gotRows []string
		for i, fragment := range fragments {
			lines := strings.Split(fragment.Text, "\n")
			require.Equal(t, "id,name,amount", lines[0], "header must lead every chunk")
			assert.Equal(t, i+1, fragment.PageNumber)
			gotRows = append(gotRows, lines[1:]...)
		}
		assert.Equal(t, wantRows, gotRows)
	})

	t.Run("budget excludes the header", func(t *testing.T) {
		strategy := newTabularStrategy(30)
		content := "a_very_long_header_row_that_exceeds_thirty_chars,x\n1,2\n3,4\n"
		fragments, err := strategy.Chunk(context.Background(), []byte(content), FileContext{FileName: "a.csv"})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
	})

	t.Run("header-only file yields zero data chunks", func(t *testing.T) {
		strategy := newTabularStrategy(80)
		fragments, err := strategy.Chunk(context.Background(), []byte("id,name\n"), FileContext{FileName: "a.csv"})
		require.NoError(t, err)
		assert.Empty(t, fragments)
	})

	t.Run("legacy workbook bytes reach the dedicated reader", func(t *testing.T) {
		strategy := newTabularStrategy(80)

		// OLE compound-document signature leading an Excel 97-2003 payload.
		payload := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 1016)...)

		var got []byte
		strategy.readLegacy = func(content []byte) ([]workbookSheet, error) {
			got = content
			return []workbookSheet{{
				name: "Ledger",
				rows: [][]string{{"id", "name"}, {"1", "a"}, {"2", "b"}},
			}}, nil
		}

		fragments, err := strategy.Chunk(context.Background(), payload, FileContext{FileName: "ledger.xls"})
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, payload, got)
		assert.Equal(t, "id,name\n1,a\n2,b", fragments[0].Text)
	})

	t.Run("legacy multi-sheet workbook derives names and continues pages", func(t *testing.T) {
		strategy := newTabularStrategy(80)
		strategy.readLegacy = func([]byte) ([]workbookSheet, error) {
			return []workbookSheet{
				{name: "Q1", rows: [][]string{{"id"}, {"1"}}},
				{name: "Q2", rows: [][]string{{"id"}, {"2"}}},
			}, nil
		}

		fragments, err := strategy.Chunk(context.Background(), []byte{0xD0, 0xCF, 0x11, 0xE0}, FileContext{FileName: "ledger.xls"})
		require.NoError(t, err)
		require.Len(t, fragments, 2)
		assert.Equal(t, "ledger-Q1.xls", fragments[0].FileName)
		assert.Equal(t, "ledger-Q2.xls", fragments[1].FileName)
		assert.Equal(t, 1, fragments[0].PageNumber)
		assert.Equal(t, 2, fragments[1].PageNumber)
	})

	t.Run("unreadable legacy workbook is an extraction error", func(t *testing.T) {
		strategy := newTabularStrategy(80)
		_, err := strategy.Chunk(context.Background(), []byte("not a compound document"), FileContext{FileName: "ledger.xls"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ExtractionError))
	})
}
