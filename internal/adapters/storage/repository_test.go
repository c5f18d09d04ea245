package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chat/internal/domain"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessages(t *testing.T) *MessageRepository {
	t.Helper()
	repo, err := NewMessageRepository(openDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func msgAt(sender, receiver, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(sender + content),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: at.UTC(),
	}
}

func TestMessageRepository_ConversationBothDirections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newMessages(t)

	at := time.Now().UTC()
	stored := []domain.Message{
		msgAt("alice", "bob", "hi", at),
		msgAt("bob", "alice", "hey", at.Add(time.Second)),
		msgAt("alice", "bob", "how are you", at.Add(2*time.Second)),
	}
	// Insert out of order; the key scheme sorts by timestamp.
	for _, i := range []int{2, 0, 1} {
		req.NoError(repo.Save(ctx, stored[i]))
	}
	req.NoError(repo.Save(ctx, msgAt("alice", "bobby", "other pair", at)))
	req.NoError(repo.Save(ctx, msgAt("carol", "bob", "unrelated", at)))

	got, err := repo.Conversation(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(stored, got)
}

func TestMessageRepository_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newMessages(t)

	at := time.Now().UTC()
	for _, c := range []string{"1", "2", "3", "4"} {
		req.NoError(repo.Save(ctx, msgAt("alice", "bob", c, at)))
	}
	got, err := repo.Conversation(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(got, 4)
	for i, m := range got {
		req.Equal(string(rune('1'+i)), m.Content)
	}
}

func TestMessageRepository_Latest(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newMessages(t)

	_, ok, err := repo.Latest(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)

	at := time.Now().UTC()
	req.NoError(repo.Save(ctx, msgAt("alice", "bob", "first", at)))
	req.NoError(repo.Save(ctx, msgAt("bob", "alice", "last", at.Add(time.Minute))))
	req.NoError(repo.Save(ctx, msgAt("bob", "alicia", "elsewhere", at.Add(time.Hour))))

	last, ok, err := repo.Latest(ctx, "alice", "bob")
	req.NoError(err)
	req.True(ok)
	req.Equal("last", last.Content)
}

func TestMessageRepository_SaveRespectsCancelledContext(t *testing.T) {
	req := require.New(t)
	repo := newMessages(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(repo.Save(ctx, msgAt("alice", "bob", "x", time.Now())), context.Canceled)
	got, err := repo.Conversation(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Empty(got)
}

func TestUserRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t))

	for _, name := range []string{"carol", "alice", "bob"} {
		u, err := domain.NewUser(name)
		req.NoError(err)
		req.NoError(repo.Create(ctx, u))
	}
	dup, _ := domain.NewUser("alice")
	req.ErrorIs(repo.Create(ctx, dup), domain.ErrIdentityExists)

	u, err := repo.Get(ctx, "bob")
	req.NoError(err)
	req.Equal("bob", u.Username)

	_, err = repo.Get(ctx, "dave")
	req.ErrorIs(err, domain.ErrIdentityNotFound)

	all, err := repo.List(ctx)
	req.NoError(err)
	req.Len(all, 3)
	req.Equal([]string{"alice", "bob", "carol"}, []string{all[0].Username, all[1].Username, all[2].Username})
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open("", true)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
