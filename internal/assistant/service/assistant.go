package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duongdat/filehub-backend/internal/assistant/biz"
	"github.com/duongdat/filehub-backend/internal/auth/middleware"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/response"
)

// AssistantService exposes the conversational file search over HTTP
type AssistantService struct {
	chatUseCase *biz.ChatUseCase
	logger      *logger.Logger
}

func NewAssistantService(chatUseCase *biz.ChatUseCase, log *logger.Logger) *AssistantService {
	return &AssistantService{
		chatUseCase: chatUseCase,
		logger:      log,
	}
}

// RegisterRoutes binds the assistant endpoints; all require authentication
func (s *AssistantService) RegisterRoutes(rg *gin.RouterGroup) {
	assistant := rg.Group("/assistant")
	{
		assistant.POST("/chat", s.Chat)
	}
}

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversationId"`
}

type suggestionResponse struct {
	FileID           int64   `json:"fileId"`
	OriginalFilename string  `json:"originalFilename"`
	Title            string  `json:"title"`
	ContentType      string  `json:"contentType"`
	RelevanceScore   float64 `json:"relevanceScore"`
	Reason           string  `json:"reason"`
}

type chatResponse struct {
	Message             string               `json:"message"`
	ConversationID      string               `json:"conversationId"`
	Suggestions         []suggestionResponse `json:"suggestions"`
	FollowUpSuggestions []string             `json:"followUpSuggestions"`
	SearchQuery         string               `json:"searchQuery,omitempty"`
}

// Chat handles POST /assistant/chat
func (s *AssistantService) Chat(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.logger.Info("assistant chat request",
		zap.Int64("user_id", callerID),
		zap.String("conversation_id", req.ConversationID))

	result := s.chatUseCase.Chat(c.Request.Context(), callerID, biz.ChatInput{
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})

	suggestions := make([]suggestionResponse, 0, len(result.Suggestions))
	for _, sg := range result.Suggestions {
		suggestions = append(suggestions, suggestionResponse{
			FileID:           sg.File.ID,
			OriginalFilename: sg.File.OriginalFilename,
			Title:            sg.File.Title,
			ContentType:      sg.File.ContentType,
			RelevanceScore:   sg.Score,
			Reason:           sg.Reason,
		})
	}

	response.Success(c, chatResponse{
		Message:             result.Message,
		ConversationID:      result.ConversationID,
		Suggestions:         suggestions,
		FollowUpSuggestions: result.FollowUps,
		SearchQuery:         result.SearchQuery,
	})
}
