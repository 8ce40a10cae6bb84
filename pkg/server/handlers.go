package server

import (
	"errors"
	"io"
	"log/slog"

	"github.com/codehubbers/hubbergram/pkg/datastore"
	"github.com/codehubbers/hubbergram/pkg/model"
	"github.com/codehubbers/hubbergram/pkg/version"
	"github.com/codehubbers/hubbergram/pkg/wire"
)

func (s *Server) handleBanner(w io.Writer, _ *Client, _ *wire.Request) error {
	return wire.WriteJSON(w, 200, map[string]any{
		"message": "Hubbergram API Server",
		"version": version.Version,
	})
}

func (s *Server) handleRegister(w io.Writer, _ *Client, req *wire.Request) error {
	body := req.JSONBody()
	username, okU := getString(body, "username")
	email, okE := getString(body, "email")
	password, okP := getString(body, "password")
	if !okU || !okE || !okP {
		return wire.WriteError(w, 400, "Missing required fields")
	}

	role := model.RoleRegular
	if v, ok := getInt(body, "role"); ok {
		role = model.Role(v)
	}
	if role != model.RoleRegular {
		// The open registration endpoint accepts a caller-chosen role.
		// Worth an operator's attention every time it happens.
		slog.Warn("registration requested elevated role", "username", username, "role", role)
	}

	id, err := s.store.NonTx().CreateUser(username, email, password, role)
	if err != nil {
		slog.Debug("user creation failed", "username", username, "err", err)
		return wire.WriteError(w, 400, "User creation failed")
	}

	slog.Info("user registered", "username", username, "user_id", id)
	return wire.WriteJSON(w, 201, map[string]any{
		"success": true,
		"user_id": id,
	})
}

func (s *Server) handleLogin(w io.Writer, client *Client, req *wire.Request) error {
	body := req.JSONBody()
	username, okU := getString(body, "username")
	password, okP := getString(body, "password")
	if !okU || !okP {
		return wire.WriteError(w, 400, "Missing credentials")
	}

	tx, err := s.store.Tx(s.ctx)
	if err != nil {
		slog.Error("login transaction failed", "err", err)
		return wire.WriteError(w, 500, "Internal server error")
	}

	user, err := tx.AuthenticateUser(username, password)
	if err != nil {
		s.metrics.FailedAuths.Add(1)
		if errors.Is(err, datastore.ErrAccountLocked) {
			slog.Warn("login attempt on locked account", "username", username)
			return wire.WriteError(w, 401, "Account locked")
		}
		if !errors.Is(err, datastore.ErrInvalidCredentials) {
			slog.Error("authentication failed", "username", username, "err", err)
		}
		return wire.WriteError(w, 401, "Invalid credentials")
	}

	token := s.codec.Issue(user.ID)

	s.registry.Authenticate(client, user.ID, user.Username, user.Role)
	s.metrics.SuccessfulAuths.Add(1)
	slog.Info("user logged in", "username", user.Username, "user_id", user.ID)

	return wire.WriteJSON(w, 200, map[string]any{
		"success": true,
		"token":   token,
		"role":    int(user.Role),
	})
}

func (s *Server) handleSendMessage(w io.Writer, client *Client, req *wire.Request) error {
	body := req.JSONBody()
	content, ok := getString(body, "content")
	if !ok {
		return wire.WriteError(w, 400, "Missing content")
	}

	msg := model.Message{
		SenderID: client.UserID,
		Content:  content,
	}

	// An unknown target leaves ReceiverID zero; the message still saves.
	if target, ok := getString(body, "target_username"); ok {
		if u, err := s.store.NonTx().GetUserByUsername(target); err == nil && u != nil {
			msg.ReceiverID = u.ID
		}
	}

	if err := s.store.NonTx().SaveMessage(&msg); err != nil {
		slog.Debug("save message failed", "sender_id", client.UserID, "err", err)
		if errors.Is(err, model.ErrMessageEmpty) || errors.Is(err, model.ErrMessageTooLong) {
			return wire.WriteError(w, 400, "Invalid message content")
		}
		return wire.WriteError(w, 500, "Failed to save message")
	}

	s.metrics.MessagesSent.Add(1)
	return wire.WriteJSON(w, 201, map[string]any{
		"success":    true,
		"message_id": msg.ID,
	})
}

func (s *Server) handleUpdateLocation(w io.Writer, client *Client, req *wire.Request) error {
	body := req.JSONBody()
	lat, okLat := getFloat(body, "latitude")
	lng, okLng := getFloat(body, "longitude")
	consent, okC := getBool(body, "consent")
	if !okLat || !okLng || !okC {
		return wire.WriteError(w, 400, "Missing location data or consent")
	}
	if !consent {
		return wire.WriteError(w, 400, "Location sharing requires explicit consent")
	}

	minutes := 0
	if v, ok := getInt(body, "duration"); ok {
		minutes = v
	}
	minutes = s.cfg.ClampShareMinutes(minutes)

	if err := s.store.NonTx().UpdateUserLocation(client.UserID, lat, lng, minutes); err != nil {
		slog.Debug("location update failed", "user_id", client.UserID, "err", err)
		return wire.WriteError(w, 500, "Failed to update location")
	}

	s.metrics.LocationUpdates.Add(1)
	slog.Debug("location updated", "user_id", client.UserID, "share_minutes", minutes)
	return wire.WriteJSON(w, 200, map[string]any{
		"success": true,
		"message": "Location updated successfully. Your location will be shared for the specified duration.",
	})
}

func (s *Server) handleGetLocations(w io.Writer, _ *Client, _ *wire.Request) error {
	now := s.now().UTC()
	users, err := s.store.NonTx().GetUserLocations(now)
	if err != nil {
		slog.Error("get locations failed", "err", err)
		return wire.WriteError(w, 500, "Failed to retrieve locations")
	}

	locations := make([]map[string]any, 0, len(users))
	for _, u := range users {
		// The store already filters on the consent window; re-check here
		// so a stale or lagging store row never leaks a position.
		if !u.LocationVisible(now) {
			continue
		}
		locations = append(locations, map[string]any{
			"username":     u.Username,
			"latitude":     u.Latitude,
			"longitude":    u.Longitude,
			"last_updated": u.LocationUpdated.Unix(),
		})
	}

	return wire.WriteJSON(w, 200, map[string]any{"locations": locations})
}

func (s *Server) handleGetUsers(w io.Writer, _ *Client, _ *wire.Request) error {
	return wire.WriteJSON(w, 200, map[string]any{
		"message": "User list endpoint - implementation depends on requirements",
	})
}

func (s *Server) handleGetMessages(w io.Writer, client *Client, _ *wire.Request) error {
	msgs, err := s.store.NonTx().GetUserMessages(client.UserID, s.cfg.PageSize)
	if err != nil {
		slog.Error("get messages failed", "user_id", client.UserID, "err", err)
		return wire.WriteError(w, 500, "Failed to retrieve messages")
	}

	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		sender := "Unknown"
		if u, err := s.store.NonTx().GetUserByID(m.SenderID); err == nil && u != nil {
			sender = u.Username
		}
		out = append(out, map[string]any{
			"sender":    sender,
			"content":   m.Content,
			"timestamp": m.Timestamp.Unix(),
		})
	}

	return wire.WriteJSON(w, 200, map[string]any{"messages": out})
}

// JSON body field accessors. encoding/json decodes every number as
// float64, so the int and bool accessors fold numeric forms.

func getString(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

func getFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

func getInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key].(float64)
	return int(v), ok
}

func getBool(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}
