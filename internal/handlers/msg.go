package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pdutta/courier/internal/apperr"
	"github.com/pdutta/courier/internal/delivery"
	"github.com/pdutta/courier/internal/middleware"
	"github.com/pdutta/courier/internal/models"
	"github.com/pdutta/courier/internal/store"
)

// MsgHandler exposes the durable side of the delivery protocol: the
// send-time write, the backlog pull, the backlog clear, and the
// client-initiated escalation for live messages that were not being viewed.
type MsgHandler struct {
	Store  store.Store
	Router *delivery.Router
}

type AddMsgRequest struct {
	Msg     string   `json:"msg"`
	ToUsers []string `json:"toUsers"`
}

type DelMsgsRequest struct {
	From string `json:"from"`
}

type AddUnreadRequest struct {
	Msg  string `json:"msg"`
	From string `json:"from"`
}

// AddMsg is the durable send: POST add-msg {msg, toUsers} -> {msg}.
// The live push happens inside the router as part of the same call.
func (h *MsgHandler) AddMsg(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req AddMsgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidArg("invalid inputs passed, please check your data"))
		return
	}
	if req.Msg == "" || len(req.ToUsers) == 0 {
		writeError(w, apperr.InvalidArg("invalid inputs passed, please check your data"))
		return
	}

	receipt, err := h.Router.Route(userID, req.Msg, req.ToUsers)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"msg": req.Msg}
	if len(receipt.NotFriends) > 0 {
		resp["failed"] = receipt.NotFriends
	}
	json.NewEncoder(w).Encode(resp)
}

// GetMsgs is the backlog pull: POST get-msgs -> {msgs: [{from, msgs}]}.
// Non-destructive; the client clears per conversation as it opens them.
func (h *MsgHandler) GetMsgs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	groups, err := h.Store.GetUnread(userID)
	if err != nil {
		writeError(w, apperr.Unavailable("unable to get messages, please try again later", err))
		return
	}
	if groups == nil {
		groups = []models.UnreadGroup{}
	}

	json.NewEncoder(w).Encode(map[string]any{"msgs": groups})
}

// DelMsgs clears one sender's backlog entries: POST del-msgs {from} -> {from}.
// Invoked when the owner opens that conversation.
func (h *MsgHandler) DelMsgs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req DelMsgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == "" {
		writeError(w, apperr.InvalidArg("invalid inputs passed, please check your data"))
		return
	}

	if err := h.Store.ClearUnread(userID, req.From); err != nil {
		writeError(w, apperr.Unavailable("unable to remove messages, please try again later", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"from": req.From})
}

// AddUnread is the escalation path: POST unread-msgs {msg, from} -> {msg}.
// The caller received a live push for a conversation it was not viewing and
// converts it into the same durable shape the offline path produces.
func (h *MsgHandler) AddUnread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req AddUnreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Msg == "" || req.From == "" {
		writeError(w, apperr.InvalidArg("invalid inputs passed, please check your data"))
		return
	}

	if _, err := h.Store.GetUserByID(userID); err != nil {
		writeError(w, apperr.NotFound("user not found"))
		return
	}
	if _, err := h.Store.GetUserByID(req.From); err != nil {
		writeError(w, apperr.NotFound("fromUser not found"))
		return
	}

	isFriend, err := h.Store.AreFriends(userID, req.From)
	if err != nil {
		writeError(w, apperr.Unavailable("unable to store message, please try again later", err))
		return
	}
	if !isFriend {
		writeError(w, apperr.ErrNotFriend)
		return
	}

	msgID, err := h.Store.SaveMessage(req.From, req.Msg)
	if err != nil {
		writeError(w, apperr.Unavailable("unable to store message, please try again later", err))
		return
	}
	if err := h.Store.EnqueueUnread(userID, req.From, msgID); err != nil {
		writeError(w, apperr.Unavailable("unable to store message, please try again later", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"msg": req.Msg})
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
