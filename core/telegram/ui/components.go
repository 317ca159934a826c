package ui

import (
	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// NewSimpleArticleResult creates an ArticleResult with given ID, title and content.
// An empty id is replaced with a random UUID.
func NewSimpleArticleResult(id, title, text string) *tele.ArticleResult {
	if id == "" {
		id = uuid.NewString()
	}
	result := &tele.ArticleResult{
		Title:       title,
		Text:        text,
		Description: text,
	}
	result.SetResultID(id)
	return result
}

// QueryResponse wraps inline results. Results are cached per user only.
func QueryResponse(cacheSeconds int, results ...tele.Result) *tele.QueryResponse {
	return &tele.QueryResponse{
		Results:    tele.Results(results),
		CacheTime:  cacheSeconds,
		IsPersonal: true,
	}
}
