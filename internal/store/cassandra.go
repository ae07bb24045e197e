package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/internal/domain"
)

// CassandraStore persists chat messages in a messages_by_room table,
// clustered by a timeuuid so a room's log reads back in send order:
//
//	CREATE TABLE messages_by_room (
//	    room        text,
//	    message_id  timeuuid,
//	    kind        text,
//	    sender_id   text,
//	    sender_name text,
//	    body        text,
//	    sent_at     timestamp,
//	    PRIMARY KEY ((room), message_id)
//	) WITH CLUSTERING ORDER BY (message_id DESC);
type CassandraStore struct {
	session *gocql.Session
}

func NewCassandraStore(cfg config.CassandraConfig) (*CassandraStore, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout

	switch cfg.Consistency {
	case "LOCAL_ONE":
		cluster.Consistency = gocql.LocalOne
	case "LOCAL_QUORUM":
		cluster.Consistency = gocql.LocalQuorum
	case "ONE":
		cluster.Consistency = gocql.One
	case "QUORUM":
		cluster.Consistency = gocql.Quorum
	default:
		cluster.Consistency = gocql.LocalOne
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	return &CassandraStore{session: session}, nil
}

func (s *CassandraStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	query := `INSERT INTO messages_by_room (room, message_id, kind, sender_id, sender_name, body, sent_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	if err := s.session.Query(query,
		msg.Room,
		gocql.TimeUUID(),
		string(msg.Kind),
		msg.SenderID,
		msg.SenderName,
		msg.Body,
		msg.SentAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *CassandraStore) RecentHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	query := `SELECT kind, sender_id, sender_name, body, sent_at
			  FROM messages_by_room
			  WHERE room = ?
			  ORDER BY message_id DESC
			  LIMIT ?`

	iter := s.session.Query(query, roomID, limit).WithContext(ctx).Iter()

	var messages []domain.ChatMessage
	var kind string
	var msg domain.ChatMessage
	var sentAt time.Time

	for iter.Scan(&kind, &msg.SenderID, &msg.SenderName, &msg.Body, &sentAt) {
		msg.Room = roomID
		msg.Kind = domain.MessageKind(kind)
		msg.SentAt = sentAt
		messages = append(messages, msg)
		msg = domain.ChatMessage{}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// The table clusters newest-first; callers expect oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}
