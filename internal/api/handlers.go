package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/ChinmayaKolhe/VicharManthan/internal/server"
	"github.com/ChinmayaKolhe/VicharManthan/internal/types"
	"github.com/gorilla/websocket"
)

type CreateChatRequest struct {
	UserId string `json:"userId"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type CreateNotificationRequest struct {
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Idea      string `json:"idea"`
	Proposal  string `json:"proposal"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("json encode", "err", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.StatusCode >= http.StatusInternalServerError {
		a.log.Error(errResp.Message, "err", errResp.Err)
	}
	a.writeJson(w, errResp.StatusCode, errResp)
}

// storeError maps a repository error to a response.
func storeError(err error) *ApiError {
	if errors.Is(err, database.ErrNotFound) {
		return NewNotFoundError()
	}
	return NewInternalServerError(err)
}

func (a *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.db.Ping(r.Context()); err != nil {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	a.writeJson(w, http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}

func (a *App) listChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	chats, err := a.db.ListChats(r.Context(), userId)
	if err != nil {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	a.writeJson(w, http.StatusOK, toChats(chats))
}

// createChat returns the existing two-party chat with the requested user, or
// creates one.
func (a *App) createChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewBadRequestError())
		return
	}

	if req.UserId == "" {
		a.writeError(w, NewBadRequestErrorf("userId is required"))
		return
	}
	if req.UserId == userId {
		a.writeError(w, NewBadRequestErrorf("cannot start a chat with yourself"))
		return
	}

	chat, err := a.db.FindChatBetween(r.Context(), userId, req.UserId)
	if err == nil {
		a.writeJson(w, http.StatusOK, toChat(chat))
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	chat, err = a.db.CreateChat(r.Context(), []string{userId, req.UserId})
	if err != nil {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	a.writeJson(w, http.StatusCreated, toChat(chat))
}

// participantChat loads the chat named in the path and checks the caller
// belongs to it.
func (a *App) participantChat(r *http.Request, userId string) (database.Chat, *ApiError) {
	chat, err := a.db.GetChat(r.Context(), r.PathValue("id"))
	if err != nil {
		return database.Chat{}, storeError(err)
	}

	if !slices.Contains(chat.Participants, userId) {
		return database.Chat{}, NewForbiddenError()
	}

	return chat, nil
}

func (a *App) getChatMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	chat, errResp := a.participantChat(r, userId)
	if errResp != nil {
		a.writeError(w, errResp)
		return
	}

	a.writeJson(w, http.StatusOK, toChat(chat))
}

// sendChatMessage persists a message and returns the updated chat. Live
// delivery is the client's job: it relays the stored message with a
// send_message event.
func (a *App) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewBadRequestError())
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		a.writeError(w, NewBadRequestErrorf("text is required"))
		return
	}

	chat, errResp := a.participantChat(r, userId)
	if errResp != nil {
		a.writeError(w, errResp)
		return
	}

	msg, err := a.db.AppendMessage(r.Context(), chat.Id, database.AppendMessageParams{
		SenderId: userId,
		Text:     text,
	})
	if err != nil {
		a.writeError(w, storeError(err))
		return
	}

	chat.Messages = append(chat.Messages, msg)
	chat.LastMessage = msg.Text
	chat.LastMessageAt = &msg.CreatedAt
	chat.UpdatedAt = msg.CreatedAt

	a.writeJson(w, http.StatusOK, toChat(chat))
}

func (a *App) listNotifications(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	notifications, err := a.db.ListNotifications(r.Context(), userId)
	if err != nil {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	a.writeJson(w, http.StatusOK, toNotifications(notifications))
}

// createNotification stores the notification first and only then pushes the
// stored copy to the recipient, if they are online.
func (a *App) createNotification(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewBadRequestError())
		return
	}

	if req.Recipient == "" || req.Type == "" || req.Message == "" {
		a.writeError(w, NewBadRequestErrorf("recipient, type and message are required"))
		return
	}

	stored, err := a.db.CreateNotification(r.Context(), database.CreateNotificationParams{
		RecipientId: req.Recipient,
		SenderId:    userId,
		Type:        req.Type,
		IdeaId:      req.Idea,
		ProposalId:  req.Proposal,
		Message:     req.Message,
	})
	if err != nil {
		a.writeError(w, NewInternalServerError(err))
		return
	}

	notification := toNotification(stored)
	if payload, err := notification.Payload(); err != nil {
		a.log.Error("encode notification", "err", err)
	} else if delivered, err := a.hub.Push(r.Context(), notification.Recipient, payload); err != nil {
		a.log.Warn("push notification", "user", notification.Recipient, "err", err)
	} else {
		a.log.Debug("notification stored", "user", notification.Recipient, "delivered", delivered)
	}

	a.writeJson(w, http.StatusCreated, notification)
}

func (a *App) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		a.writeError(w, NewUnauthorizedError())
		return
	}

	if err := a.db.MarkNotificationRead(r.Context(), r.PathValue("id"), userId); err != nil {
		a.writeError(w, storeError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) getPresence(w http.ResponseWriter, r *http.Request) {
	target := r.PathValue("userId")

	online, err := a.hub.Lookup(r.Context(), target)
	if err != nil {
		if errors.Is(err, server.ErrHubStopped) {
			a.writeError(w, NewServiceUnavailableError(err))
		} else {
			a.writeError(w, NewInternalServerError(err))
		}
		return
	}

	a.writeJson(w, http.StatusOK, types.UserStatus{UserId: target, Online: online})
}

// serveWs upgrades to a websocket session. Sessions start anonymous and
// identify themselves with a user_connected event.
func (a *App) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("error upgrading connection", "err", err)
		return
	}

	session, err := server.NewSession(conn, a.hub, a.log, a.sendQueueSize)
	if err != nil {
		a.log.Error("create session", "err", err)
		conn.Close()
		return
	}

	if !a.hub.Connect(session) {
		conn.Close()
		return
	}

	go session.Write()
	go session.Read()
}
