package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// conversationSep joins the two participant ids. ":" because uuids already
// contain dashes.
const conversationSep = ":"

// ConversationID derives the canonical key for the message thread between
// two users. The ids are sorted so both directions produce the same key;
// the same derivation runs on the send path and the history path.
func ConversationID(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return as + conversationSep + bs
}

// ConversationParticipants recovers the two participant ids from a
// conversation key. Keys that are not in canonical form are rejected.
func ConversationParticipants(conversationID string) (uuid.UUID, uuid.UUID, error) {
	first, second, ok := strings.Cut(conversationID, conversationSep)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id %q", conversationID)
	}

	a, err := uuid.Parse(first)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id %q: %w", conversationID, err)
	}
	b, err := uuid.Parse(second)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id %q: %w", conversationID, err)
	}

	if ConversationID(a, b) != conversationID {
		return uuid.Nil, uuid.Nil, fmt.Errorf("conversation id %q is not canonical", conversationID)
	}

	return a, b, nil
}
