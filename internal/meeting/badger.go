package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// Key layout:
//
//	meeting/<id>             Meeting JSON
//	todo/<meetingID>/<id>    Todo JSON
//	todoidx/<id>             meetingID
//	setting/<key>            raw value
const (
	meetingPrefix = "meeting/"
	todoPrefix    = "todo/"
	todoIdxPrefix = "todoidx/"
	settingPrefix = "setting/"
)

// BadgerStore is a [Store] in an embedded badger database.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens or creates the database directory at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

func (s *BadgerStore) CreateMeeting(_ context.Context, m Meeting) (Meeting, error) {
	now := s.now().UTC()
	m.ID = uuid.NewString()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.Date.IsZero() {
		m.Date = now
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, meetingPrefix+m.ID, m)
	})
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to store meeting: %w", err)
	}
	return m, nil
}

func (s *BadgerStore) UpdateMeeting(_ context.Context, id string, u MeetingUpdate) (Meeting, error) {
	var m Meeting
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, meetingPrefix+id, &m); err != nil {
			return err
		}
		u.apply(&m)
		m.UpdatedAt = s.now().UTC()
		return setJSON(txn, meetingPrefix+id, m)
	})
	if err != nil {
		return Meeting{}, wrapNotFound(err, "update meeting "+id)
	}
	return m, nil
}

func (s *BadgerStore) GetMeeting(_ context.Context, id string) (Meeting, error) {
	var m Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, meetingPrefix+id, &m)
	})
	if err != nil {
		return Meeting{}, wrapNotFound(err, "get meeting "+id)
	}
	return m, nil
}

func (s *BadgerStore) ListMeetings(_ context.Context) ([]Meeting, error) {
	var out []Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, meetingPrefix, func(val []byte) error {
			var m Meeting
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *BadgerStore) AddTodos(_ context.Context, meetingID string, todos []Todo) ([]Todo, error) {
	out := make([]Todo, len(todos))
	now := s.now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(meetingPrefix + meetingID)); err != nil {
			return err
		}
		for i, t := range todos {
			t.ID = uuid.NewString()
			t.MeetingID = meetingID
			t.CreatedAt = now.Add(time.Duration(i))
			if t.Status == "" {
				t.Status = StatusOpen
			}
			if err := setJSON(txn, todoPrefix+meetingID+"/"+t.ID, t); err != nil {
				return err
			}
			if err := txn.Set([]byte(todoIdxPrefix+t.ID), []byte(meetingID)); err != nil {
				return err
			}
			out[i] = t
		}
		return nil
	})
	if err != nil {
		return nil, wrapNotFound(err, "add todos to meeting "+meetingID)
	}
	return out, nil
}

func (s *BadgerStore) ListTodos(_ context.Context, meetingID string) ([]Todo, error) {
	prefix := todoPrefix
	if meetingID != "" {
		prefix += meetingID + "/"
	}
	var out []Todo
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, func(val []byte) error {
			var t Todo
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			out = append(out, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	sortTodos(out)
	return out, nil
}

func (s *BadgerStore) SetTodoStatus(_ context.Context, id, status string) error {
	if err := validStatus(status); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(todoIdxPrefix + id))
		if err != nil {
			return err
		}
		meetingID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		key := todoPrefix + string(meetingID) + "/" + id
		var t Todo
		if err := getJSON(txn, key, &t); err != nil {
			return err
		}
		t.Status = status
		return setJSON(txn, key, t)
	})
	return wrapNotFound(err, "set status of todo "+id)
}

func (s *BadgerStore) Setting(_ context.Context, key string) (string, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingPrefix + key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return string(val), nil
}

func (s *BadgerStore) SetSetting(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func wrapNotFound(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
