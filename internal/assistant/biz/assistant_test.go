package biz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filebiz "github.com/duongdat/filehub-backend/internal/file/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

type fakeFileFinder struct {
	files    []*filebiz.File
	err      error
	lastQ    filebiz.ListQuery
	queries  int
	filtered bool
}

func (f *fakeFileFinder) ListShared(_ context.Context, _ int64, q filebiz.ListQuery) ([]*filebiz.File, int64, error) {
	f.lastQ = q
	f.queries++
	if f.err != nil {
		return nil, 0, f.err
	}
	// Emulate the filename substring filter the repository applies
	if q.Filename != "" && f.filtered {
		var out []*filebiz.File
		for _, file := range f.files {
			if strings.Contains(strings.ToLower(file.OriginalFilename), strings.ToLower(q.Filename)) {
				out = append(out, file)
			}
		}
		return out, int64(len(out)), nil
	}
	return f.files, int64(len(f.files)), nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.text, g.err
}

func strPtr(s string) *string { return &s }

func testFile(id int64, name string, uploadedAt time.Time) *filebiz.File {
	return &filebiz.File{
		ID:               id,
		OriginalFilename: name,
		ContentType:      "application/pdf",
		UploaderID:       2,
		UploadedAt:       uploadedAt,
	}
}

func newChatUseCase(finder FileFinder, gen *fakeGenerator, enabled bool) *ChatUseCase {
	log, _ := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	if gen == nil {
		return NewChatUseCase(finder, nil, enabled, log)
	}
	return NewChatUseCase(finder, gen, enabled, log)
}

func TestClassifyIntentPriority(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"show me recent pdf reports", IntentRecent},
		{"what are the most downloaded files", IntentPopular},
		{"show my files please", IntentPersonal},
		{"files from my department", IntentDepartment},
		{"project roadmap docs", IntentProject},
		{"quarterly budget", IntentGeneral},
		// recent outranks project when both match
		{"latest project files", IntentRecent},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyIntent(tt.message), tt.message)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("Can you find me the Q3 budget report, please? budget BUDGET")

	// stop words, short tokens and non-alphabetic tokens are dropped,
	// duplicates collapse
	assert.Contains(t, got, "budget")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "q3")
	assert.NotContains(t, got, "report,")
	assert.Equal(t, 1, countOf(got, "budget"))
}

func countOf(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}

func TestExtractKeywordsCap(t *testing.T) {
	msg := "alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima"
	got := extractKeywords(msg)
	assert.Len(t, got, 10)
}

func TestChatRecentScenario(t *testing.T) {
	now := time.Now()
	finder := &fakeFileFinder{files: []*filebiz.File{
		testFile(1, "recent-report.pdf", now.Add(-2*24*time.Hour)),
		testFile(2, "old-report.pdf", now.Add(-40*24*time.Hour)),
		testFile(3, "pdf-notes.pdf", now.Add(-1*time.Hour)),
	}}

	uc := newChatUseCase(finder, nil, false)
	result := uc.Chat(context.Background(), 7, ChatInput{Message: "show me recent pdf reports"})

	assert.Equal(t, IntentRecent, result.Intent)
	assert.NotEmpty(t, result.Message)
	assert.NotEmpty(t, result.ConversationID)
	require.Len(t, result.Suggestions, 2)

	// the 40-day-old file is cut by the 7-day window; within it the
	// keyword-heavy name outranks mere recency
	assert.Equal(t, int64(1), result.Suggestions[0].File.ID)
	for _, s := range result.Suggestions {
		assert.True(t, now.Sub(s.File.UploadedAt) < 7*24*time.Hour)
		assert.Greater(t, s.Score, 0.1)
		assert.NotEmpty(t, s.Reason)
	}
}

func TestChatPopularNarrowing(t *testing.T) {
	now := time.Now()
	a := testFile(1, "guide.pdf", now.Add(-10*24*time.Hour))
	a.DownloadCount = 3
	b := testFile(2, "handbook.pdf", now.Add(-10*24*time.Hour))
	b.DownloadCount = 12
	c := testFile(3, "untouched.pdf", now.Add(-10*24*time.Hour))

	finder := &fakeFileFinder{files: []*filebiz.File{a, b, c}}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "what are the popular files"})

	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, int64(2), result.Suggestions[0].File.ID)
	assert.Contains(t, result.Suggestions[0].Reason, "frequently downloaded")
}

func TestChatPersonalKeepsOwnFilesOnly(t *testing.T) {
	now := time.Now()
	mine := testFile(1, "mine.pdf", now)
	mine.UploaderID = 7
	other := testFile(2, "other.pdf", now)

	finder := &fakeFileFinder{files: []*filebiz.File{mine, other}}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "show me my files"})

	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, int64(1), result.Suggestions[0].File.ID)
	assert.Contains(t, result.Suggestions[0].Reason, "uploaded by you")
}

func TestChatScoringSignals(t *testing.T) {
	now := time.Now()
	f := testFile(1, "budget.pdf", now)
	f.Title = "Budget"
	f.Description = "annual budget breakdown"
	f.Tags = strPtr("budget,finance")

	finder := &fakeFileFinder{files: []*filebiz.File{f}}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "budget"})

	require.Len(t, result.Suggestions, 1)
	// base 0.1 + title 0.3 + description 0.2 + tags 0.2 + pdf 0.1
	assert.InDelta(t, 0.9, result.Suggestions[0].Score, 0.001)
}

func TestChatScoreCappedAtOne(t *testing.T) {
	now := time.Now()
	f := testFile(1, "budget report summary.pdf", now.Add(-time.Hour))
	f.Description = "budget report summary"
	f.Tags = strPtr("budget,report,summary")

	finder := &fakeFileFinder{files: []*filebiz.File{f}}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "recent budget report summary"})

	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, 1.0, result.Suggestions[0].Score)
}

func TestChatTruncatesToSixSuggestions(t *testing.T) {
	now := time.Now()
	var files []*filebiz.File
	for i := int64(1); i <= 10; i++ {
		files = append(files, testFile(i, "report.pdf", now))
	}

	finder := &fakeFileFinder{files: files}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "report"})
	assert.Len(t, result.Suggestions, 6)
}

func TestChatRetriesWithoutFilenameFilter(t *testing.T) {
	now := time.Now()
	finder := &fakeFileFinder{
		files:    []*filebiz.File{testFile(1, "notes.txt", now)},
		filtered: true,
	}
	uc := newChatUseCase(finder, nil, false)

	// keyword "handbook" matches nothing by filename; the second
	// unfiltered fetch still supplies candidates
	result := uc.Chat(context.Background(), 7, ChatInput{Message: "handbook"})

	assert.Equal(t, 2, finder.queries)
	assert.Empty(t, finder.lastQ.Filename)
	assert.NotEmpty(t, result.Message)
}

func TestChatSearchFailureYieldsApology(t *testing.T) {
	finder := &fakeFileFinder{err: errors.New("db down")}
	uc := newChatUseCase(finder, nil, false)

	result := uc.Chat(context.Background(), 7, ChatInput{Message: "anything", ConversationID: "conv-9"})

	assert.Equal(t, "conv-9", result.ConversationID)
	assert.Empty(t, result.Suggestions)
	assert.Contains(t, result.Message, "sorry")
	assert.Len(t, result.FollowUps, 3)
}

func TestChatGeneratorFallback(t *testing.T) {
	now := time.Now()
	finder := &fakeFileFinder{files: []*filebiz.File{testFile(1, "report.pdf", now)}}
	gen := &fakeGenerator{err: errors.New("upstream overloaded")}

	uc := newChatUseCase(finder, gen, true)
	result := uc.Chat(context.Background(), 7, ChatInput{Message: "report"})

	assert.Equal(t, 1, gen.calls)
	assert.NotEmpty(t, result.Message)
	assert.NotContains(t, result.Message, "overloaded")
}

func TestChatGeneratorDisabledUsesTemplate(t *testing.T) {
	now := time.Now()
	finder := &fakeFileFinder{files: []*filebiz.File{testFile(1, "report.pdf", now)}}
	gen := &fakeGenerator{text: "should not be used"}

	uc := newChatUseCase(finder, gen, false)
	result := uc.Chat(context.Background(), 7, ChatInput{Message: "report"})

	assert.Zero(t, gen.calls)
	assert.Contains(t, result.Message, "1 file")
}

func TestChatGeneratorAnswerUsed(t *testing.T) {
	now := time.Now()
	finder := &fakeFileFinder{files: []*filebiz.File{testFile(1, "report.pdf", now)}}
	gen := &fakeGenerator{text: "Here is what I found for you."}

	uc := newChatUseCase(finder, gen, true)
	result := uc.Chat(context.Background(), 7, ChatInput{Message: "report"})

	assert.Equal(t, "Here is what I found for you.", result.Message)
}

func TestFollowUpsVaryByOutcome(t *testing.T) {
	withResults := followUps(true)
	noResults := followUps(false)

	assert.Len(t, withResults, 3)
	assert.Len(t, noResults, 3)
	assert.NotEqual(t, withResults, noResults)
}

func TestExtractSearchQueryStripsPhrases(t *testing.T) {
	assert.Equal(t, "the quarterly report", extractSearchQuery("Can you help me find the quarterly report"))
	assert.Equal(t, "hello", extractSearchQuery("hello"))
}
