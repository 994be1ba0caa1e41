package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"dchat/internal/domain"
	"dchat/internal/security"
	"dchat/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or
// Sec-WebSocket-Protocol), registers the session, runs the reconnect
// backlog scan, then dispatches events:
//   - join                -> idempotent no-op (registration happened at upgrade)
//   - away / back         -> soft presence signals
//   - logout              -> force-disconnect all of the user's sessions
//   - send-message        -> delivery pipeline
//   - mark-seen /
//     conversation-opened -> receipt tracker
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	presenceSvc *service.PresenceService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByUsername(ctx, sub)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		sess := NewSession(user.ID, conn)
		first := hub.Register(sess)
		defer func() {
			conn.Close()
			last := hub.Unregister(sess)
			// The request context is gone once the connection drops.
			if err := presenceSvc.HandleDisconnect(context.Background(), user, last); err != nil {
				log.Printf("ws: disconnect presence for %d: %v", user.ID, err)
			}
		}()

		if err := presenceSvc.HandleConnect(ctx, user, first); err != nil {
			log.Printf("ws: connect presence for %d: %v", user.ID, err)
		}
		// Reconnect scan: promote everything sent while this user was
		// offline and confirm delivery to the original senders.
		if err := msgSvc.DeliverBacklog(ctx, user.ID); err != nil {
			log.Printf("ws: deliver backlog for %d: %v", user.ID, err)
		}

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "join":
				// Registration is idempotent per connection and already
				// happened at upgrade time.

			case "away":
				lastSeen := parseEventTime(payload["last_seen"])
				if err := presenceSvc.SetAway(ctx, user, lastSeen); err != nil {
					log.Printf("ws: away: %v", err)
				}

			case "back":
				if err := presenceSvc.SetBack(ctx, user); err != nil {
					log.Printf("ws: back: %v", err)
				}

			case "logout":
				if err := presenceSvc.Logout(ctx, user); err != nil {
					log.Printf("ws: logout: %v", err)
				}
				return

			case "send-message":
				receiver, _ := payload["receiver"].(string)
				content, _ := payload["content"].(string)
				if receiver == "" || content == "" {
					sendError(sess, "send-message requires receiver and non-empty content")
					continue
				}
				if _, err := msgSvc.Send(ctx, user.Username, receiver, content); err != nil {
					log.Printf("ws: send-message: %v", err)
					sendError(sess, "failed to send message")
				}

			case "mark-seen", "conversation-opened":
				counterpartyID := parseEventID(payload["counterparty_id"])
				if counterpartyID == 0 {
					sendError(sess, msgType+" requires a counterparty_id")
					continue
				}
				if _, err := msgSvc.MarkSeen(ctx, user.ID, counterpartyID); err != nil {
					log.Printf("ws: %s: %v", msgType, err)
					sendError(sess, "failed to mark messages as seen")
				}

			default:
				log.Printf("ws: unknown event type %q from user %d", msgType, user.ID)
			}
		}
	}
}

// parseEventID accepts ids as JSON numbers or strings. Clients with ids
// beyond float64 precision can send them as strings.
func parseEventID(v any) int64 {
	switch id := v.(type) {
	case float64:
		return int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func parseEventTime(v any) time.Time {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func sendError(sess *Session, msg string) {
	_ = sess.Send(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
