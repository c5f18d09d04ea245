package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dkeye/Chat/internal/domain"
)

const messageSeqBandwidth = 128

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewMessageRepository(db *badger.DB) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), messageSeqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq}, nil
}

// Close releases leased sequence numbers; the db itself is owned by the caller.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type diskMessage struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	AudioURL string `json:"audio_url,omitempty"`
	At       int64  `json:"at"`
}

// conversationPrefix is shared by both directions of a pair. Names are length
// prefixed and cannot contain ':', so no pair's prefix is a prefix of another's.
func conversationPrefix(a, b string) []byte {
	lo, hi := domain.Participants(a, b)
	return fmt.Appendf(nil, "msg:%d:%s:%s:", len(lo), lo, hi)
}

// Save persists a message in one transaction. The key is
// "msg:{len}:{lo}:{hi}:{timestamp_padded}:{seq_padded}" so a prefix scan yields
// the conversation in timestamp order, with insertion order breaking ties.
func (m *MessageRepository) Save(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := m.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	key := append(conversationPrefix(msg.Sender, msg.Receiver),
		fmt.Sprintf("%019d:%020d", msg.Timestamp.UTC().UnixNano(), n)...)
	value, err := json.Marshal(fromDomainMessage(msg))
	if err != nil {
		return err
	}

	txn := m.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return err
	}
	// Last point where the caller's deadline can still cancel the write.
	if err := ctx.Err(); err != nil {
		return err
	}
	return txn.Commit()
}

// Conversation returns every message exchanged between a and b, oldest first.
func (m *MessageRepository) Conversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := conversationPrefix(a, b)
	var out []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			msg, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent message between a and b, if any.
func (m *MessageRepository) Latest(ctx context.Context, a, b string) (domain.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, false, err
	}
	prefix := conversationPrefix(a, b)
	var (
		found bool
		msg   domain.Message
	)
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		// Seek past the largest key in the prefix, then walk back.
		it.Seek(append(append([]byte{}, prefix...), 0xff))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var err error
		msg, err = decodeItem(it.Item())
		found = err == nil
		return err
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, found, nil
}

func decodeItem(item *badger.Item) (domain.Message, error) {
	var dm diskMessage
	err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &dm)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message %q: %w", item.Key(), err)
	}
	return toDomainMessage(dm), nil
}

func fromDomainMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:       string(msg.ID),
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		Content:  msg.Content,
		AudioURL: msg.AudioURL,
		At:       msg.Timestamp.UTC().UnixNano(),
	}
}

func toDomainMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(dm.ID),
		Sender:    dm.Sender,
		Receiver:  dm.Receiver,
		Content:   dm.Content,
		AudioURL:  dm.AudioURL,
		Timestamp: time.Unix(0, dm.At).UTC(),
	}
}
