package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dchat/internal/service"
)

type sendMessageRequest struct {
	Receiver string `json:"receiver" validate:"required"`
	Content  string `json:"content" validate:"required,max=5000"`
}

// @Summary      Send a message
// @Description  Submit a message to the delivery pipeline
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body sendMessageRequest true "Receiver username and content"
// @Success      201  {object}  service.MessageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages [post]
func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		resp, err := msgSvc.Send(r.Context(), currentUser.Username, req.Receiver, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      Conversation history
// @Description  Both directions of traffic between two users, oldest first
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        user1 path string true "First username"
// @Param        user2 path string true "Second username"
// @Success      200  {array}   service.MessageResponse
// @Failure      404  {object}  map[string]string
// @Router       /messages/{user1}/{user2} [get]
func handleHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user1 := chi.URLParam(r, "user1")
		user2 := chi.URLParam(r, "user2")

		msgs, err := msgSvc.History(r.Context(), user1, user2)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Chat list
// @Description  Counterparties with their latest message, most recent first
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        username path string true "Username"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  map[string]string
// @Router       /messages/chats/{username} [get]
func handleChats(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		chats, err := msgSvc.ChatSummaries(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "chats": chats})
	}
}

// @Summary      Recent-contacts seed
// @Description  The incrementally maintained contact set (membership only)
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        username path string true "Username"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  map[string]string
// @Router       /messages/contacts/{username} [get]
func handleRecentContacts(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		contacts, err := msgSvc.RecentContacts(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "contacts": contacts})
	}
}

// @Summary      Unread counts
// @Description  Unread messages for the user, grouped by sender id
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        username path string true "Username"
// @Success      200  {object}  map[int64]int
// @Failure      404  {object}  map[string]string
// @Router       /messages/unread-counts/{username} [get]
func handleUnreadCounts(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		counts, err := msgSvc.UnreadCounts(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// @Summary      Mark messages read
// @Description  Promote all unread messages from the counterparty to the viewer
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        counterpartyID path int true "Counterparty (sender) id"
// @Param        viewerID path int true "Viewer (receiver) id; must be the caller"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]string
// @Router       /messages/mark-read/{counterpartyID}/{viewerID} [put]
func handleMarkRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		counterpartyID, err := strconv.ParseInt(chi.URLParam(r, "counterpartyID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid counterparty id"})
			return
		}
		viewerID, err := strconv.ParseInt(chi.URLParam(r, "viewerID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid viewer id"})
			return
		}
		if viewerID != currentUser.ID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "can only mark own messages as read"})
			return
		}

		ids, err := msgSvc.MarkSeen(r.Context(), viewerID, counterpartyID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "messages marked as read", "message_ids": ids})
	}
}

// @Summary      Last read message
// @Description  Newest read message from sender to receiver (read-receipt anchor)
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        senderID path int true "Sender id"
// @Param        receiverID path int true "Receiver id"
// @Success      200  {object}  map[string]int64
// @Router       /messages/last-read/{senderID}/{receiverID} [get]
func handleLastRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID, err := strconv.ParseInt(chi.URLParam(r, "senderID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sender id"})
			return
		}
		receiverID, err := strconv.ParseInt(chi.URLParam(r, "receiverID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receiver id"})
			return
		}

		id, err := msgSvc.LastReadID(r.Context(), senderID, receiverID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"message_id": id})
	}
}
