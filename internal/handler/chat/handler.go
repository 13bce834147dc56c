package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/survey-chat/backend/pkg/utils"
)

const (
	errMessageRequired = "Message is required"
	errInvalidBody     = "invalid request body"
	errProcessFailed   = "Failed to process message"
)

// Processor turns a single chat message into a reply.
type Processor interface {
	ProcessMessage(ctx context.Context, message string) string
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	processor Processor
	upgrader  websocket.Upgrader
}

// New 创建聊天处理器。allowedOrigin 为空时只接受同源或无 Origin 的 WebSocket 连接。
func New(processor Processor, allowedOrigin string) *Handler {
	return &Handler{
		processor: processor,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigin),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/ws", h.handleWebSocket)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat 处理单条聊天消息
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	// 空请求体等同于 {}，落到 Message is required。
	if err := utils.DecodeJSON(w, r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, errMessageRequired)
		return
	}

	reply, err := h.process(r.Context(), payload.Message)
	if err != nil {
		log.Printf("[chat] %v", err)
		utils.RespondError(w, http.StatusInternalServerError, errProcessFailed)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// process shields the handler from a misbehaving processor.
func (h *Handler) process(ctx context.Context, message string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	if h.processor == nil {
		return "", fmt.Errorf("chat processor not configured")
	}
	return h.processor.ProcessMessage(ctx, message), nil
}
