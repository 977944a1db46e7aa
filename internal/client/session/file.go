package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const sessionFile = "session.json"

type fileState struct {
	Writer string            `json:"writer"`
	Values map[string]string `json:"values"`
}

// FileStore keeps the tokens in a JSON file so that several processes of the
// same user share one session. Each FileStore is one browsing context.
type FileStore struct {
	dir    string
	path   string
	writer string
	mu     sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		path:   filepath.Join(dir, sessionFile),
		writer: uuid.NewString(),
	}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, error) {
	st, err := s.read()
	if err != nil {
		return "", err
	}
	return st.Values[key], nil
}

func (s *FileStore) Set(key, value string) error {
	return s.update(key, value)
}

func (s *FileStore) Remove(key string) error {
	return s.update(key, "")
}

func (s *FileStore) update(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return err
	}
	if st.Values[key] == value {
		return nil
	}
	if value == "" {
		delete(st.Values, key)
	} else {
		st.Values[key] = value
	}
	st.Writer = s.writer
	return s.write(st)
}

func (s *FileStore) read() (fileState, error) {
	st := fileState{Values: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return fileState{Values: map[string]string{}}, fmt.Errorf("decode session: %w", err)
	}
	if st.Values == nil {
		st.Values = map[string]string{}
	}
	return st, nil
}

// write replaces the file atomically so readers never see a partial document.
func (s *FileStore) write(st fileState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *FileStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// the file is replaced by rename, so watch the directory rather than the file
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	last, err := s.read()
	if err != nil {
		last = fileState{Values: map[string]string{}}
	}

	q := newChangeQueue()
	go q.run(ctx)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != sessionFile {
					continue
				}
				cur, err := s.read()
				if err != nil {
					continue
				}
				if cur.Writer != s.writer {
					for _, c := range diff(last.Values, cur.Values) {
						q.push(c)
					}
				}
				last = cur
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return q.out, nil
}

func diff(old, cur map[string]string) []Change {
	var out []Change
	for k, v := range cur {
		if old[k] != v {
			out = append(out, Change{Key: k, OldValue: old[k], NewValue: v})
		}
	}
	for k, v := range old {
		if _, ok := cur[k]; !ok {
			out = append(out, Change{Key: k, OldValue: v})
		}
	}
	return out
}
