// Package corpus provides streaming access to a geoinference dataset stored
// as gzip JSON-lines files, with fold-scoped redaction of location data.
//
// A dataset directory has the layout:
//
//	ds_root/
//	    dataset.json              optional metadata
//	    users.json.gz             one JSON user per line, posts grouped
//	    posts.json.gz             optional flattened post stream
//	    mention_network.elist     optional mention-graph edge list
//	    bi_mention_network.elist  optional bidirectional edge list
package corpus

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UsersFile is the required user-grouped stream within a dataset directory.
const UsersFile = "users.json.gz"

// ErrDataset marks a fundamentally broken dataset (missing required file),
// as opposed to an individual malformed record.
var ErrDataset = eris.New("corpus: invalid dataset")

// User is one account and its posts, read together. Posts are ordered as
// stored.
type User struct {
	UserID string
	Posts  []Post
}

// Metadata is the parsed dataset.json content, passed through untyped.
type Metadata map[string]any

// Corpus is a handle on a dataset directory. It holds no open files itself;
// each iterator opens its own stream so consumers never share a cursor.
type Corpus struct {
	dir      string
	redacted map[string]struct{}
	meta     Metadata
}

// Open validates the dataset directory and returns a Corpus. The users file
// must exist; its absence is a dataset error, not a recoverable condition.
// Users whose ids appear in redacted are yielded with all coordinate data
// stripped from their posts.
func Open(dir string, redacted map[string]struct{}) (*Corpus, error) {
	usersPath := filepath.Join(dir, UsersFile)
	if _, err := os.Stat(usersPath); err != nil {
		return nil, eris.Wrapf(ErrDataset, "missing %s: %v", usersPath, err)
	}

	c := &Corpus{dir: dir, redacted: redacted}

	metaPath := filepath.Join(dir, "dataset.json")
	if data, err := os.ReadFile(metaPath); err == nil {
		if err := json.Unmarshal(data, &c.meta); err != nil {
			zap.L().Warn("corpus: unparsable dataset.json, ignoring",
				zap.String("path", metaPath), zap.Error(err))
		}
	}

	return c, nil
}

// Dir returns the dataset root directory.
func (c *Corpus) Dir() string { return c.dir }

// Metadata returns the dataset.json content, or nil when absent.
func (c *Corpus) Metadata() Metadata { return c.meta }

// Redacted reports whether a user's location data is stripped by this view.
func (c *Corpus) Redacted(userID string) bool {
	_, ok := c.redacted[userID]
	return ok
}

// Users opens a fresh forward-only iterator over the user stream. Restarting
// means calling Users again; an iterator cannot rewind.
func (c *Corpus) Users() (*UserIter, error) {
	path := filepath.Join(c.dir, UsersFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataset, "open %s: %v", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, eris.Wrapf(ErrDataset, "gunzip %s: %v", path, err)
	}

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)

	return &UserIter{
		corpus: c,
		file:   f,
		gz:     gz,
		sc:     sc,
		log:    zap.L().Named("corpus"),
	}, nil
}

// Posts opens a fresh iterator over all posts, flattened in user order.
func (c *Corpus) Posts() (*PostIter, error) {
	users, err := c.Users()
	if err != nil {
		return nil, err
	}
	return &PostIter{users: users}, nil
}

// UserIter is a single-pass cursor over the user stream. Malformed lines are
// skipped and counted, never fatal. Not safe for concurrent use.
type UserIter struct {
	corpus *Corpus
	file   *os.File
	gz     *gzip.Reader
	sc     *bufio.Scanner
	log    *zap.Logger

	current *User
	skipped int
	err     error
	done    bool
}

// rawUser is the wire shape of one users.json.gz line.
type rawUser struct {
	UserID stringID          `json:"user_id"`
	Posts  []json.RawMessage `json:"posts"`
}

// Next advances to the next well-formed user. It returns false at the end of
// the stream or on a stream-level error (see Err).
func (it *UserIter) Next() bool {
	if it.done {
		return false
	}
	for it.sc.Scan() {
		line := it.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		user, err := it.decodeUser(line)
		if err != nil {
			it.skipped++
			it.log.Debug("skipping malformed user record", zap.Error(err))
			continue
		}
		it.current = user
		return true
	}
	it.err = it.sc.Err()
	it.done = true
	return false
}

// User returns the record positioned by the last successful Next.
func (it *UserIter) User() *User { return it.current }

// Skipped returns the running count of malformed records passed over.
func (it *UserIter) Skipped() int { return it.skipped }

// Err returns the stream-level error, if any. Malformed records are not
// errors.
func (it *UserIter) Err() error {
	return eris.Wrap(it.err, "corpus: user stream")
}

// Close releases the underlying stream and logs the malformed-record count.
func (it *UserIter) Close() error {
	it.done = true
	if it.skipped > 0 {
		it.log.Info("corpus stream finished with skipped records",
			zap.Int("skipped", it.skipped))
	}
	gzErr := it.gz.Close()
	if err := it.file.Close(); err != nil {
		return eris.Wrap(err, "corpus: close users file")
	}
	return eris.Wrap(gzErr, "corpus: close gzip reader")
}

func (it *UserIter) decodeUser(line []byte) (*User, error) {
	var ru rawUser
	if err := json.Unmarshal(line, &ru); err != nil {
		return nil, eris.Wrap(err, "corpus: decode user line")
	}
	if ru.UserID == "" {
		return nil, eris.New("corpus: user record without user_id")
	}

	uid := string(ru.UserID)
	redacted := it.corpus.Redacted(uid)

	user := &User{UserID: uid, Posts: make([]Post, 0, len(ru.Posts))}
	for _, raw := range ru.Posts {
		post, err := decodePost(raw, uid)
		if err != nil {
			return nil, err
		}
		if redacted {
			post = post.redact()
		}
		user.Posts = append(user.Posts, post)
	}
	return user, nil
}

// PostIter flattens the user stream into individual posts.
type PostIter struct {
	users   *UserIter
	pending []Post
	current Post
}

// Next advances to the next post, crossing user boundaries as needed.
func (it *PostIter) Next() bool {
	for len(it.pending) == 0 {
		if !it.users.Next() {
			return false
		}
		it.pending = it.users.User().Posts
	}
	it.current = it.pending[0]
	it.pending = it.pending[1:]
	return true
}

// Post returns the record positioned by the last successful Next.
func (it *PostIter) Post() Post { return it.current }

// Err returns the stream-level error, if any.
func (it *PostIter) Err() error { return it.users.Err() }

// Skipped returns the count of malformed user records passed over.
func (it *PostIter) Skipped() int { return it.users.Skipped() }

// Close releases the underlying stream.
func (it *PostIter) Close() error { return it.users.Close() }
