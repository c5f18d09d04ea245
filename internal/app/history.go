package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/dkeye/Chat/internal/domain"
)

// ContactSummary pairs a contact with the last message exchanged with the viewer.
type ContactSummary struct {
	User        *domain.User
	LastMessage *domain.Message
}

// History answers conversation and contact-list queries with materialized results.
type History struct {
	Messages MessageStore
	Users    IdentityStore
}

// Conversation returns messages between viewer and counterpart, oldest first,
// optionally narrowed to those whose content contains search (case-insensitive).
func (h *History) Conversation(ctx context.Context, viewer *domain.User, counterpart, search string) ([]domain.Message, error) {
	if _, err := h.Users.Get(ctx, counterpart); err != nil {
		return nil, err
	}
	msgs, err := h.Messages.Conversation(ctx, viewer.Username, counterpart)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if search != "" {
		needle := strings.ToLower(search)
		msgs = lo.Filter(msgs, func(m domain.Message, _ int) bool {
			return strings.Contains(strings.ToLower(m.Content), needle)
		})
	}
	slices.SortStableFunc(msgs, func(a, b domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return msgs, nil
}

// RecentContacts lists every other identity by most recent exchange, newest
// first. Contacts without messages sort last in identity enumeration order.
func (h *History) RecentContacts(ctx context.Context, viewer *domain.User) ([]ContactSummary, error) {
	users, err := h.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	others := lo.Reject(users, func(u *domain.User, _ int) bool {
		return u.Username == viewer.Username
	})

	out := make([]ContactSummary, 0, len(others))
	for _, u := range others {
		last, ok, err := h.Messages.Latest(ctx, viewer.Username, u.Username)
		if err != nil {
			return nil, fmt.Errorf("latest with %s: %w", u.Username, err)
		}
		summary := ContactSummary{User: u}
		if ok {
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}

	slices.SortStableFunc(out, compareRecency)
	return out, nil
}

// compareRecency orders newer last messages first; a missing message counts as
// older than any instant.
func compareRecency(a, b ContactSummary) int {
	switch {
	case a.LastMessage == nil && b.LastMessage == nil:
		return 0
	case a.LastMessage == nil:
		return 1
	case b.LastMessage == nil:
		return -1
	}
	return b.LastMessage.Timestamp.Compare(a.LastMessage.Timestamp)
}
