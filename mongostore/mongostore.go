// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mongostore

import (
	"context"
	"log/slog"
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/auth"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
)

const (
	DefaultDatabase = "quickpoll"

	pollsCollection = "polls"
	statsCollection = "stats"
	statsID         = "global_counters"
)

type optionDoc struct {
	ID   string `bson:"id"`
	Text string `bson:"text"`
}

type pollDoc struct {
	ID                   string           `bson:"_id"`
	PollID               string           `bson:"poll_id"`
	CreatorKey           string           `bson:"creator_key"`
	Question             string           `bson:"question"`
	Options              []optionDoc      `bson:"options"`
	AllowMultipleChoices bool             `bson:"allow_multiple_choices"`
	PublicResults        bool             `bson:"public_results"`
	Theme                string           `bson:"theme"`
	Votes                map[string]int64 `bson:"votes"`
	VoterCount           int64            `bson:"voter_count"`
	Voters               []string         `bson:"voters,omitempty"`
	CreatedAt            time.Time        `bson:"created_at"`
	ActiveUntil          time.Time        `bson:"active_until"`
	ExpireAt             time.Time        `bson:"expire_at"`
}

// withoutVoters keeps the voter array on the server
var withoutVoters = bson.M{"voters": 0}

// Store is a store.PollStore backed by MongoDB. Expiry is handled by a TTL
// index on expire_at, so Sweep is a no-op.
type Store struct {
	session  *mgo.Session
	database string
}

var _ store.PollStore = &Store{}

// Open dials MongoDB and ensures the indexes exist
func Open(url string) (*Store, error) {
	info, err := mgo.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mongo URL")
	}
	if info.Timeout == 0 {
		info.Timeout = 10 * time.Second
	}

	session, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, errors.Wrap(err, "mongo connection failed")
	}
	session.SetMode(mgo.Primary, false)
	session.SetSafe(&mgo.Safe{})

	database := info.Database
	if database == "" {
		database = DefaultDatabase
	}

	s := &Store{session: session, database: database}
	if err := s.ensureIndexes(); err != nil {
		session.Close()
		return nil, err
	}

	slog.Info("connected to mongo", "database", database)
	return s, nil
}

func (s *Store) ensureIndexes() error {
	sess := s.session.Copy()
	defer sess.Close()
	c := sess.DB(s.database).C(pollsCollection)

	indexes := []mgo.Index{
		{Key: []string{"poll_id"}, Unique: true},
		{Key: []string{"creator_key"}, Unique: true},
		// mgo cannot express expireAfterSeconds: 0, one second is the floor
		{Key: []string{"expire_at"}, ExpireAfter: time.Second},
	}
	for _, idx := range indexes {
		if err := c.EnsureIndex(idx); err != nil {
			return errors.Wrapf(err, "failed to ensure index on %v", idx.Key)
		}
	}
	return nil
}

// with runs fn against a copied session, as mgo recommends per operation
func (s *Store) with(ctx context.Context, collection string, fn func(c *mgo.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	sess := s.session.Copy()
	defer sess.Close()
	return fn(sess.DB(s.database).C(collection))
}

func (s *Store) Close() error {
	s.session.Close()
	return nil
}

// Drop removes all data. Tests only.
func (s *Store) Drop() error {
	sess := s.session.Copy()
	defer sess.Close()
	for _, name := range []string{pollsCollection, statsCollection} {
		if _, err := sess.DB(s.database).C(name).RemoveAll(nil); err != nil {
			return errors.Wrapf(err, "failed to clear %s", name)
		}
	}
	return nil
}

func toDoc(poll *models.Poll) (*pollDoc, error) {
	id, err := auth.GenerateID(12)
	if err != nil {
		return nil, err
	}

	doc := &pollDoc{
		ID:                   id,
		PollID:               poll.PollID,
		CreatorKey:           poll.CreatorKey,
		Question:             poll.Question,
		AllowMultipleChoices: poll.AllowMultipleChoices,
		PublicResults:        poll.PublicResults,
		Theme:                poll.Theme,
		Votes:                make(map[string]int64, len(poll.Options)),
		CreatedAt:            poll.CreatedAt.UTC(),
		ActiveUntil:          poll.ActiveUntil.UTC(),
		ExpireAt:             poll.ExpireAt.UTC(),
	}
	for _, opt := range poll.Options {
		doc.Options = append(doc.Options, optionDoc{ID: opt.ID, Text: opt.Text})
		doc.Votes[opt.ID] = 0
	}
	return doc, nil
}

func (d *pollDoc) toPoll() *models.Poll {
	poll := &models.Poll{
		PollID:               d.PollID,
		CreatorKey:           d.CreatorKey,
		Question:             d.Question,
		AllowMultipleChoices: d.AllowMultipleChoices,
		PublicResults:        d.PublicResults,
		Theme:                d.Theme,
		Votes:                make(models.Tally, len(d.Votes)),
		VoterCount:           uint64(d.VoterCount),
		Voters:               models.NewVoterSet(d.Voters...),
		CreatedAt:            d.CreatedAt,
		ActiveUntil:          d.ActiveUntil,
		ExpireAt:             d.ExpireAt,
	}
	for _, opt := range d.Options {
		poll.Options = append(poll.Options, models.Option{ID: opt.ID, Text: opt.Text})
	}
	for id, n := range d.Votes {
		poll.Votes[id] = uint64(n)
	}
	poll.Normalize()
	return poll
}

func (s *Store) Create(ctx context.Context, poll *models.Poll) error {
	doc, err := toDoc(poll)
	if err != nil {
		return err
	}

	return s.with(ctx, pollsCollection, func(c *mgo.Collection) error {
		if err := c.Insert(doc); err != nil {
			if mgo.IsDup(err) {
				return store.ErrDuplicateID
			}
			return errors.Wrap(err, "failed to insert poll")
		}
		return nil
	})
}

// Find hides polls past expire_at that the TTL monitor has not removed yet
func (s *Store) Find(ctx context.Context, pollID string) (*models.Poll, error) {
	var doc pollDoc
	err := s.with(ctx, pollsCollection, func(c *mgo.Collection) error {
		return c.Find(bson.M{
			"poll_id":   pollID,
			"expire_at": bson.M{"$gt": time.Now().UTC()},
		}).Select(withoutVoters).One(&doc)
	})
	if err == mgo.ErrNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load poll")
	}
	return doc.toPoll(), nil
}

func (s *Store) FindForVote(ctx context.Context, pollID, fingerprint string) (*models.Poll, error) {
	poll, err := s.Find(ctx, pollID)
	if err != nil {
		return nil, err
	}

	var n int
	err = s.with(ctx, pollsCollection, func(c *mgo.Collection) error {
		var err error
		n, err = c.Find(bson.M{"poll_id": pollID, "voters": fingerprint}).Count()
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to check voter")
	}
	if n > 0 {
		poll.Voters[fingerprint] = struct{}{}
	}
	return poll, nil
}

// ApplyVote is a single findAndModify. The selector only matches while the
// fingerprint is absent, the poll is open at now and every chosen option
// exists.
func (s *Store) ApplyVote(ctx context.Context, pollID string, optionIDs []string, fingerprint string, now time.Time) (*models.Poll, error) {
	inc := bson.M{"voter_count": 1}
	for _, id := range optionIDs {
		inc["votes."+id] = 1
	}

	selector := bson.M{
		"poll_id":      pollID,
		"active_until": bson.M{"$gt": now.UTC()},
		"voters":       bson.M{"$ne": fingerprint},
		"options.id":   bson.M{"$all": optionIDs},
	}
	change := mgo.Change{
		Update:    bson.M{"$inc": inc, "$addToSet": bson.M{"voters": fingerprint}},
		ReturnNew: true,
	}

	var doc pollDoc
	err := s.with(ctx, pollsCollection, func(c *mgo.Collection) error {
		_, err := c.Find(selector).Select(withoutVoters).Apply(change, &doc)
		if err != mgo.ErrNotFound {
			return err
		}
		return s.whyNoMatch(c, pollID, fingerprint, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAlreadyVoted) ||
			errors.Is(err, store.ErrClosed) || errors.Is(err, store.ErrUnknownOption) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to apply vote")
	}

	poll := doc.toPoll()
	poll.Voters[fingerprint] = struct{}{}
	return poll, nil
}

// whyNoMatch explains a findAndModify that matched nothing
func (s *Store) whyNoMatch(c *mgo.Collection, pollID, fingerprint string, now time.Time) error {
	n, err := c.Find(bson.M{"poll_id": pollID}).Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	n, err = c.Find(bson.M{"poll_id": pollID, "active_until": bson.M{"$gt": now.UTC()}}).Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrClosed
	}

	n, err = c.Find(bson.M{"poll_id": pollID, "voters": fingerprint}).Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return store.ErrAlreadyVoted
	}
	return store.ErrUnknownOption
}

func (s *Store) Delete(ctx context.Context, pollID, creatorKey string) (int64, error) {
	var removed int
	err := s.with(ctx, pollsCollection, func(c *mgo.Collection) error {
		info, err := c.RemoveAll(bson.M{"poll_id": pollID, "creator_key": creatorKey})
		if err != nil {
			return err
		}
		removed = info.Removed
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete poll")
	}
	return int64(removed), nil
}

// Sweep does nothing, the TTL index removes expired polls
func (s *Store) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (s *Store) IncrementStat(ctx context.Context, name string) error {
	err := s.with(ctx, statsCollection, func(c *mgo.Collection) error {
		_, err := c.UpsertId(statsID, bson.M{"$inc": bson.M{name: 1}})
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to increment %s", name)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	raw := bson.M{}
	err := s.with(ctx, statsCollection, func(c *mgo.Collection) error {
		return c.FindId(statsID).One(&raw)
	})
	if err != nil && err != mgo.ErrNotFound {
		return nil, errors.Wrap(err, "failed to load stats")
	}

	stats := make(map[string]int64)
	for name, v := range raw {
		switch n := v.(type) {
		case int:
			stats[name] = int64(n)
		case int64:
			stats[name] = n
		case float64:
			stats[name] = int64(n)
		}
	}
	return stats, nil
}
