package auth

import (
	"crypto/sha256"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the name of the portal session cookie.
const SessionName = "portal-session"

const (
	// SessionKeyChatID holds the chat conversation identifier. It rotates on reset.
	SessionKeyChatID = "chat_session_id"
	// SessionKeyVisitorID identifies the browser for chat throttling. It
	// survives resets.
	SessionKeyVisitorID = "visitor_id"
)

// ChatIdentity is a chat conversation and the browser it belongs to.
type ChatIdentity struct {
	SessionID string
	VisitorID string
}

// SessionStore keeps the per-browser chat session id in a signed cookie.
type SessionStore struct {
	store *sessions.CookieStore
	now   func() time.Time
}

// NewSessionStore creates the cookie-based session store.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase; it is SHA-256 hashed to derive a 32-byte key. It must be the
// same on every replica.
func NewSessionStore(secret string, settings CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store, now: time.Now}
}

// ChatIdentity returns this browser's chat session and visitor ids,
// creating and saving whichever is missing.
func (s *SessionStore) ChatIdentity(w http.ResponseWriter, r *http.Request) (ChatIdentity, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		// a cookie signed with an old secret decodes as a fresh session
		session, err = s.store.New(r, SessionName)
		if session == nil {
			return ChatIdentity{}, fmt.Errorf("failed to open session: %w", err)
		}
	}

	var id ChatIdentity
	id.SessionID, _ = session.Values[SessionKeyChatID].(string)
	id.VisitorID, _ = session.Values[SessionKeyVisitorID].(string)
	if id.SessionID != "" && id.VisitorID != "" {
		return id, nil
	}

	if id.SessionID == "" {
		id.SessionID = NewChatSessionID(s.now())
		session.Values[SessionKeyChatID] = id.SessionID
	}
	if id.VisitorID == "" {
		id.VisitorID = uuid.NewString()
		session.Values[SessionKeyVisitorID] = id.VisitorID
	}
	if err := session.Save(r, w); err != nil {
		return ChatIdentity{}, fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// CurrentChatSessionID returns the chat session id without creating one.
func (s *SessionStore) CurrentChatSessionID(r *http.Request) string {
	session, err := s.store.Get(r, SessionName)
	if err != nil || session == nil {
		return ""
	}
	id, _ := session.Values[SessionKeyChatID].(string)
	return id
}

// ResetChatSession drops the chat session id so the next message starts a
// new conversation. The visitor id is kept.
func (s *SessionStore) ResetChatSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	if session == nil {
		return nil
	}
	delete(session.Values, SessionKeyChatID)
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewChatSessionID returns "chatbot-{unixMillis}-{7 base36 chars}".
func NewChatSessionID(now time.Time) string {
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return "chatbot-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}
