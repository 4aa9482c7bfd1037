package biz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duongdat/filehub-backend/internal/assistant/llm"
	filebiz "github.com/duongdat/filehub-backend/internal/file/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

// Intent describes what kind of files the user is after
type Intent string

const (
	IntentRecent     Intent = "RECENT"
	IntentPopular    Intent = "POPULAR"
	IntentPersonal   Intent = "PERSONAL"
	IntentDepartment Intent = "DEPARTMENT"
	IntentProject    Intent = "PROJECT"
	IntentGeneral    Intent = "GENERAL_SEARCH"
)

const (
	candidatePageSize = 20
	maxSuggestions    = 6
	maxKeywords       = 10
	minScore          = 0.1
)

// intentKeywords is scanned in priority order; the first intent whose
// phrase list matches the message wins.
var intentKeywords = []struct {
	intent  Intent
	phrases []string
}{
	{IntentRecent, []string{"recent", "latest", "new", "today", "yesterday", "this week"}},
	{IntentPopular, []string{"popular", "most downloaded", "trending", "frequently used"}},
	{IntentPersonal, []string{"my files", "mine", "uploaded by me", "my documents"}},
	{IntentDepartment, []string{"department", "team", "colleagues", "dept"}},
	{IntentProject, []string{"project", "proj"}},
}

var stopWords = map[string]struct{}{
	"find": {}, "search": {}, "show": {}, "me": {}, "the": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "for": {}, "from": {}, "to": {}, "with": {},
	"by": {}, "can": {}, "you": {}, "help": {}, "please": {}, "i": {}, "need": {},
	"want": {}, "looking": {},
}

var conversationalPhrases = []string{
	"can you help me find", "i need to find", "show me", "search for",
	"find me", "looking for", "where is", "do you have",
}

// ChatInput is one user turn
type ChatInput struct {
	Message        string
	ConversationID string
}

// Suggestion is a ranked file candidate
type Suggestion struct {
	File   *filebiz.File
	Score  float64
	Reason string
}

// ChatResult is always returned, even when everything downstream failed
type ChatResult struct {
	Message        string
	ConversationID string
	Suggestions    []Suggestion
	FollowUps      []string
	SearchQuery    string
	Intent         Intent
}

// FileFinder is the slice of the file domain the assistant needs
type FileFinder interface {
	ListShared(ctx context.Context, callerID int64, q filebiz.ListQuery) ([]*filebiz.File, int64, error)
}

// ChatUseCase turns a free-form message into ranked file suggestions with
// a conversational answer. It never returns an error: any failure becomes
// an apology message with no suggestions.
type ChatUseCase struct {
	files     FileFinder
	generator llm.Generator
	enabled   bool
	logger    *logger.Logger
	now       func() time.Time
}

func NewChatUseCase(files FileFinder, generator llm.Generator, enabled bool, log *logger.Logger) *ChatUseCase {
	return &ChatUseCase{
		files:     files,
		generator: generator,
		enabled:   enabled && generator != nil,
		logger:    log,
		now:       time.Now,
	}
}

// Chat runs the full pipeline for one message
func (uc *ChatUseCase) Chat(ctx context.Context, callerID int64, in ChatInput) *ChatResult {
	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	intent := classifyIntent(in.Message)
	keywords := extractKeywords(in.Message)

	suggestions, err := uc.searchFiles(ctx, callerID, intent, keywords)
	if err != nil {
		uc.logger.Error("chat file search failed",
			zap.Int64("user_id", callerID),
			zap.Error(err))
		return &ChatResult{
			Message:        "I'm sorry, I encountered an error while searching for files. Please try again.",
			ConversationID: conversationID,
			Suggestions:    []Suggestion{},
			FollowUps: []string{
				"Show me recent files",
				"What files are available?",
				"Find PDF documents",
			},
			Intent: intent,
		}
	}

	return &ChatResult{
		Message:        uc.respond(ctx, in.Message, intent, suggestions),
		ConversationID: conversationID,
		Suggestions:    suggestions,
		FollowUps:      followUps(len(suggestions) > 0),
		SearchQuery:    extractSearchQuery(in.Message),
		Intent:         intent,
	}
}

func classifyIntent(message string) Intent {
	lower := strings.ToLower(message)
	for _, entry := range intentKeywords {
		for _, phrase := range entry.phrases {
			if strings.Contains(lower, phrase) {
				return entry.intent
			}
		}
	}
	return IntentGeneral
}

func isAlphabetic(word string) bool {
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(word) > 0
}

func extractKeywords(message string) []string {
	seen := make(map[string]struct{})
	var keywords []string

	for _, word := range strings.Fields(strings.ToLower(message)) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if !isAlphabetic(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func (uc *ChatUseCase) searchFiles(ctx context.Context, callerID int64, intent Intent, keywords []string) ([]Suggestion, error) {
	q := filebiz.ListQuery{
		Page:     0,
		Size:     candidatePageSize,
		SortBy:   "uploadedAt",
		Desc:     true,
		Filename: strings.Join(keywords, " "),
	}

	files, _, err := uc.files.ListShared(ctx, callerID, q)
	if err != nil {
		return nil, err
	}

	// A keyword-joined filename filter can easily be too narrow; retry
	// unfiltered so intent and scoring still have material to work with.
	if len(files) == 0 && q.Filename != "" {
		q.Filename = ""
		files, _, err = uc.files.ListShared(ctx, callerID, q)
		if err != nil {
			return nil, err
		}
	}

	files = uc.narrowByIntent(files, intent, callerID)

	suggestions := make([]Suggestion, 0, len(files))
	for _, f := range files {
		score := uc.scoreFile(f, keywords, intent)
		if score <= minScore {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			File:   f,
			Score:  score,
			Reason: uc.reason(f, keywords, intent),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

func (uc *ChatUseCase) narrowByIntent(files []*filebiz.File, intent Intent, callerID int64) []*filebiz.File {
	switch intent {
	case IntentRecent:
		cutoff := uc.now().Add(-7 * 24 * time.Hour)
		var recent []*filebiz.File
		for _, f := range files {
			if f.UploadedAt.After(cutoff) {
				recent = append(recent, f)
			}
		}
		sort.SliceStable(recent, func(i, j int) bool {
			return recent[i].UploadedAt.After(recent[j].UploadedAt)
		})
		return recent

	case IntentPopular:
		var popular []*filebiz.File
		for _, f := range files {
			if f.DownloadCount > 0 {
				popular = append(popular, f)
			}
		}
		sort.SliceStable(popular, func(i, j int) bool {
			return popular[i].DownloadCount > popular[j].DownloadCount
		})
		return popular

	case IntentPersonal:
		var own []*filebiz.File
		for _, f := range files {
			if f.UploaderID == callerID {
				own = append(own, f)
			}
		}
		return own

	default:
		return files
	}
}

func displayName(f *filebiz.File) string {
	if f.Title != "" {
		return f.Title
	}
	return f.OriginalFilename
}

func (uc *ChatUseCase) scoreFile(f *filebiz.File, keywords []string, intent Intent) float64 {
	score := 0.1

	name := strings.ToLower(displayName(f))
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			score += 0.3
		}
	}

	if f.Description != "" {
		desc := strings.ToLower(f.Description)
		for _, kw := range keywords {
			if strings.Contains(desc, kw) {
				score += 0.2
			}
		}
	}

	if f.Tags != nil && *f.Tags != "" {
		tags := strings.ToLower(*f.Tags)
		for _, kw := range keywords {
			if strings.Contains(tags, kw) {
				score += 0.2
			}
		}
	}

	switch intent {
	case IntentRecent:
		age := uc.now().Sub(f.UploadedAt)
		if age < 7*24*time.Hour {
			score += 0.3
		} else if age < 30*24*time.Hour {
			score += 0.1
		}
	case IntentPopular:
		if f.DownloadCount > 0 {
			bonus := float64(f.DownloadCount) * 0.02
			if bonus > 0.3 {
				bonus = 0.3
			}
			score += bonus
		}
	}

	contentType := strings.ToLower(f.ContentType)
	switch {
	case strings.Contains(contentType, "pdf"):
		score += 0.1
	case strings.Contains(contentType, "image"):
		score += 0.05
	case strings.Contains(contentType, "document"), strings.Contains(contentType, "word"):
		score += 0.08
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (uc *ChatUseCase) reason(f *filebiz.File, keywords []string, intent Intent) string {
	var reasons []string

	name := strings.ToLower(displayName(f))
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			reasons = append(reasons, fmt.Sprintf("contains '%s'", kw))
			break
		}
	}

	switch intent {
	case IntentRecent:
		age := uc.now().Sub(f.UploadedAt)
		if age < 24*time.Hour {
			reasons = append(reasons, "uploaded today")
		} else if age < 7*24*time.Hour {
			reasons = append(reasons, "uploaded recently")
		}
	case IntentPopular:
		if f.DownloadCount > 5 {
			reasons = append(reasons, "frequently downloaded")
		}
	case IntentPersonal:
		reasons = append(reasons, "uploaded by you")
	}

	if strings.Contains(strings.ToLower(f.ContentType), "pdf") {
		reasons = append(reasons, "PDF document")
	}

	if len(reasons) == 0 {
		return "general match"
	}
	return strings.Join(reasons, ", ")
}

// respond asks the generator for a conversational answer; every failure
// degrades to the deterministic template.
func (uc *ChatUseCase) respond(ctx context.Context, message string, intent Intent, suggestions []Suggestion) string {
	if !uc.enabled {
		return fallbackResponse(message, intent, suggestions)
	}

	text, err := uc.generator.Generate(ctx, buildPrompt(message, intent, suggestions))
	if err != nil || strings.TrimSpace(text) == "" {
		uc.logger.Warn("text generation failed, using fallback", zap.Error(err))
		return fallbackResponse(message, intent, suggestions)
	}
	return text
}

func buildPrompt(message string, intent Intent, suggestions []Suggestion) string {
	var b strings.Builder

	b.WriteString("You are a helpful AI assistant for a file management system. ")
	b.WriteString("A user is asking about files and you need to provide a conversational, helpful response.\n\n")
	fmt.Fprintf(&b, "User Query: %q\nDetected Intent: %s\n\n", message, intent)

	if len(suggestions) == 0 {
		b.WriteString("No files were found matching the user's request.\n\n")
		b.WriteString("Explain that nothing matched, suggest alternative search terms, ")
		b.WriteString("and offer to help with other queries.\n")
	} else {
		fmt.Fprintf(&b, "Found %d relevant files:\n", len(suggestions))
		for i, s := range suggestions {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s) - %s\n", s.File.OriginalFilename, s.File.ContentType, s.Reason)
		}
		b.WriteString("\nConfirm you found relevant files, briefly mention why they are relevant, ")
		b.WriteString("and encourage the user to open the suggestions below.\n")
	}

	b.WriteString("\nKeep the response conversational, helpful, and under 100 words. ")
	b.WriteString("Do not list the files; they are shown separately as clickable suggestions.")
	return b.String()
}

func fallbackResponse(message string, intent Intent, suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return noResultsResponse(message, intent)
	}

	count := len(suggestions)
	countText := fmt.Sprintf("%d files", count)
	if count == 1 {
		countText = "1 file"
	}

	switch intent {
	case IntentRecent:
		return fmt.Sprintf("Great! I found %s from your recent uploads. The most relevant one looks promising - click on any file below to view or download it. Need help finding anything else?", countText)
	case IntentPopular:
		return fmt.Sprintf("Perfect! I found %s that are popular among users. These are frequently accessed files that might be what you're looking for. Anything else I can help you find?", countText)
	case IntentPersonal:
		return fmt.Sprintf("Here are %s that you've uploaded. You can click on any of them to access your files. Looking for something specific among your uploads?", countText)
	default:
		return fmt.Sprintf("Excellent! I found %s that match your search. Click on any file below to view or download it. Is there anything else you'd like me to help you find?", countText)
	}
}

func noResultsResponse(message string, intent Intent) string {
	switch intent {
	case IntentRecent:
		return "I couldn't find any recent files. Try checking if files have been uploaded recently or adjust your search terms."
	case IntentPopular:
		return "I couldn't find any popular files. Try browsing all available files or use different search terms."
	case IntentPersonal:
		return "I couldn't find any files uploaded by you. Try uploading some files first or check your file access permissions."
	default:
		return fmt.Sprintf("I couldn't find any files matching '%s'. Try using different keywords or check if the files are shared with you.", extractSearchQuery(message))
	}
}

func followUps(found bool) []string {
	if found {
		return []string{
			"Show me more files from the same department",
			"Find files uploaded this week",
			"What are the most downloaded files?",
		}
	}
	return []string{
		"Show me all recent files",
		"What files are available in my department?",
		"Find the most popular files",
	}
}

func extractSearchQuery(message string) string {
	clean := strings.ToLower(message)
	for _, phrase := range conversationalPhrases {
		clean = strings.TrimSpace(strings.ReplaceAll(clean, phrase, ""))
	}
	if clean == "" {
		return message
	}
	return clean
}
