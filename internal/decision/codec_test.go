package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/vrdx/internal/domain"
)

func TestParseSingleDecision(t *testing.T) {
	body := "### 1 Adopt Tool\n" +
		"* **Status**: Draft\n" +
		"* **Decision**: Use the new tool.\n" +
		"* **Context**: Simpler workflow.\n" +
		"* **Consequences**: Less maintenance.\n"

	decisions, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	d := decisions[0]
	assert.Equal(t, 1, d.ID)
	assert.Equal(t, "Adopt Tool", d.Title)
	assert.Equal(t, "Draft", d.Status)
	assert.Equal(t, "Use the new tool.", d.Decision)
	assert.Equal(t, "Simpler workflow.", d.Context)
	assert.Equal(t, "Less maintenance.", d.Consequences)
	assert.Equal(t, strings.TrimSpace(body), d.Raw)
}

func TestParsePreservesSourceOrder(t *testing.T) {
	body := "### 3 Upgrade Stack\n" +
		"* **Status**: ✅ Accepted\n" +
		"* **Decision**: Upgrade to latest stack.\n" +
		"* **Context**: Align with company standards.\n" +
		"* **Consequences**: Training required.\n" +
		"\n" +
		"### 2 Sunset Legacy\n" +
		"* **Status**: ❌ Rejected\n" +
		"* **Decision**: Drop the legacy module.\n" +
		"* **Context**: Customers still depend on it.\n" +
		"* **Consequences**: Revisit next quarter.\n"

	decisions, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, []int{3, 2}, ids(decisions))
	assert.Equal(t, "Upgrade Stack", decisions[0].Title)
	assert.Equal(t, "❌ Rejected", decisions[1].Status)
	assert.True(t, strings.HasPrefix(decisions[1].Raw, "### 2 Sunset Legacy"))
	assert.False(t, strings.Contains(decisions[0].Raw, "Sunset"))
}

func TestParseMultilineValuesAndFieldOrder(t *testing.T) {
	body := "### 4 Multi\n" +
		"* **Context**: First line\n" +
		"  second line\n" +
		"\n" +
		"  third line   \n" +
		"* **Status**: 📝 Draft\n" +
		"* **Consequences**: One\n" +
		"* **Decision**: Go with it.\n"

	decisions, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	d := decisions[0]
	assert.Equal(t, "First line\n  second line\n  third line", d.Context)
	assert.Equal(t, "📝 Draft", d.Status)
	assert.Equal(t, "One", d.Consequences)
	assert.Equal(t, "Go with it.", d.Decision)
}

func TestParseHandlesCRLFAndCR(t *testing.T) {
	for _, nl := range []string{"\r\n", "\r"} {
		body := strings.Join([]string{
			"### 9 Newlines",
			"* **Status**: 📝 Draft",
			"* **Decision**: Keep",
			"  going",
			"* **Context**: Windows",
			"* **Consequences**: None",
			"",
		}, nl)

		decisions, err := Parse(body)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, "Keep\n  going", decisions[0].Decision)
		assert.Equal(t, "Newlines", decisions[0].Title)
	}
}

func TestParseNamesMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing []string
	}{
		{
			name: "consequences",
			body: "### 5 Incomplete\n* **Status**: 📝 Draft\n* **Decision**: TBD\n* **Context**: TBD\n",
			missing: []string{LabelConsequences},
		},
		{
			name: "status and context",
			body: "### 6 Sparse\n* **Decision**: TBD\n* **Consequences**: TBD\n",
			missing: []string{LabelStatus, LabelContext},
		},
		{
			name: "empty value",
			body: "### 7 Blank\n* **Status**:   \n* **Decision**: a\n* **Context**: b\n* **Consequences**: c\n",
			missing: []string{LabelStatus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.missing, perr.Missing)
			for _, label := range tt.missing {
				assert.Contains(t, err.Error(), label)
			}
		})
	}
}

func TestParseLabelsAreCaseSensitive(t *testing.T) {
	body := "### 1 Lower\n* **status**: x\n* **Decision**: a\n* **Context**: b\n* **Consequences**: c\n"

	_, err := Parse(body)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []string{LabelStatus}, perr.Missing)
}

func TestParseWhitespaceBodyHasNoDecisions(t *testing.T) {
	decisions, err := Parse("\n  \n\t\n")
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestParseRejectsBodyWithoutHeadings(t *testing.T) {
	_, err := Parse("### Missing Fields\n* **Status**: 📝 Draft\n")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseStopsValueAtForeignHeading(t *testing.T) {
	body := "### 1 Notes\n" +
		"* **Status**: 📝 Draft\n" +
		"* **Decision**: a\n" +
		"* **Context**: b\n" +
		"* **Consequences**: c\n" +
		"### Appendix\n" +
		"ignored text\n"

	decisions, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "c", decisions[0].Consequences)
}

func TestRenderCanonicalShape(t *testing.T) {
	d := domain.Decision{ID: 10, Title: "Test Decision", Status: "✅ Accepted", Decision: "Do the thing.", Context: "Because it helps.", Consequences: "Improved morale."}

	got := Render(d, "\r\n")
	assert.Equal(t, "### 10 Test Decision\r\n"+
		"* **Status**: ✅ Accepted\r\n"+
		"* **Decision**: Do the thing.\r\n"+
		"* **Context**: Because it helps.\r\n"+
		"* **Consequences**: Improved morale.", got)
}

func TestRoundTrip(t *testing.T) {
	records := []domain.Decision{
		{ID: 2, Title: "Second", Status: "📝 Draft", Decision: "Line one\nLine two", Context: "Ctx", Consequences: "Cons"},
		{ID: 7, Title: "Seventh", Status: "✅ Accepted", Decision: "Yes", Context: "Multi\n  indented", Consequences: "Fine"},
		{ID: 0, Title: "Zero", Status: "❌ Rejected", Decision: "No", Context: "None", Consequences: "Nothing"},
	}

	for _, nl := range []string{"\n", "\r\n"} {
		parsed, err := Parse(RenderAll(records, nl, DefaultSeparator(nl)))
		require.NoError(t, err)
		require.Len(t, parsed, len(records))
		for i := range records {
			assert.True(t, records[i].Equal(parsed[i]), "record %d: want %+v got %+v", i, records[i], parsed[i])
		}
	}
}

func TestRenderAllSeparator(t *testing.T) {
	records := []domain.Decision{
		{ID: 1, Title: "A", Status: "s", Decision: "d", Context: "c", Consequences: "q"},
		{ID: 0, Title: "B", Status: "s", Decision: "d", Context: "c", Consequences: "q"},
	}
	assert.Contains(t, RenderAll(records, "\n", "\n\n"), "* **Consequences**: q\n\n### 0 B")
	assert.Contains(t, RenderAll(records, "\n", "\n---\n"), "* **Consequences**: q\n---\n### 0 B")
	assert.Equal(t, "", RenderAll(nil, "\n", "\n\n"))
}

func TestUpdateBodyEndsWithNewline(t *testing.T) {
	records := []domain.Decision{
		{ID: 1, Title: "Example", Status: "📝 Draft", Decision: "Initial choice.", Context: "Evaluating options.", Consequences: "Requires follow-up."},
		{ID: 0, Title: "Prior Decision", Status: "✅ Accepted", Decision: "Baseline.", Context: "Historical context.", Consequences: "Already in place."},
	}

	body := UpdateBody(records, "\n")
	assert.True(t, strings.HasSuffix(body, "\n"))
	assert.Equal(t, 2, strings.Count(body, "###"))
	assert.Equal(t, "", UpdateBody(nil, "\n"))
}

func TestWithRenderRecomputesRaw(t *testing.T) {
	d := domain.Decision{ID: 3, Title: "T", Status: "s", Decision: "d", Context: "c", Consequences: "q", Raw: "stale"}
	assert.Equal(t, Render(d, "\n"), WithRender(d).Raw)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, 0, NextID(nil))
	assert.Equal(t, 8, NextID([]domain.Decision{{ID: 7}}))
	assert.Equal(t, 13, NextID([]domain.Decision{{ID: 3}, {ID: 12}, {ID: 5}}))
}

func ids(decisions []domain.Decision) []int {
	out := make([]int, len(decisions))
	for i, d := range decisions {
		out[i] = d.ID
	}
	return out
}
