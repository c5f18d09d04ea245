package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chat/internal/adapters/blob"
	"github.com/dkeye/Chat/internal/adapters/storage"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

type failingMessages struct {
	MessageStore
	saves int
}

func (f *failingMessages) Save(context.Context, domain.Message) error {
	f.saves++
	return errors.New("disk full")
}

type fixture struct {
	users    *storage.UserRepository
	messages *storage.MessageRepository
	fs       afero.Fs
	audio    *blob.AudioStore
	rooms    *core.RoomManagerImpl
	relay    *Relay
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	msgs, err := storage.NewMessageRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = msgs.Close() })

	users := storage.NewUserRepository(db)
	for _, n := range names {
		u, err := domain.NewUser(n)
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), u))
	}

	fs := afero.NewMemMapFs()
	audio := blob.NewAudioStore(fs, "/media/")
	rooms := core.NewRoomManager()
	return &fixture{
		users:    users,
		messages: msgs,
		fs:       fs,
		audio:    audio,
		rooms:    rooms,
		relay:    &Relay{Messages: msgs, Attachments: audio, Rooms: rooms},
	}
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.users.Get(context.Background(), name)
	require.NoError(t, err)
	return u
}

// join connects viewer to the room addressed by peer.
func (f *fixture) join(t *testing.T, sid, viewer, peer string) (core.MemberSession, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	s := core.NewMemberSession(core.SessionID(sid), f.user(t, viewer), f.user(t, peer), conn)
	f.rooms.Join(s.RoomKey(), s)
	s.MarkOpen()
	return s, conn
}

func (f *fixture) audioFiles(t *testing.T) []string {
	t.Helper()
	exists, err := afero.DirExists(f.fs, blob.AudioDir)
	require.NoError(t, err)
	if !exists {
		return nil
	}
	entries, err := afero.ReadDir(f.fs, blob.AudioDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
