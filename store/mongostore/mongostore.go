// Package mongostore is the durable FingerprintStore backend, wired
// against go.mongodb.org/mongo-driver. Collections: one for song
// metadata keyed by a normalized title/artist key, one for fingerprint
// hash couples with a compound unique index on (song_id, offset, hash).
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mdobak/go-xerrors"

	"playtrace/models"
	"playtrace/store"
	"playtrace/utils"
)

const (
	songsCollection        = "songs"
	fingerprintsCollection = "fingerprints"
)

type songDoc struct {
	ID     uint32 `bson:"_id"`
	Title  string `bson:"title"`
	Artist string `bson:"artist"`
	Key    string `bson:"key"`
}

type fingerprintDoc struct {
	Hash   uint64 `bson:"hash"`
	SongID uint32 `bson:"song_id"`
	Offset uint32 `bson:"offset"`
}

// Store is a mongo-backed FingerprintStore.
type Store struct {
	songs        *mongo.Collection
	fingerprints *mongo.Collection
}

// New wraps a connected *mongo.Database, ensuring the required indexes
// exist: a unique key on songs.key for dedup, a hash index
// on fingerprints.hash for lookup, and a compound uniqueness index on
// (song_id, offset, hash).
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		songs:        db.Collection(songsCollection),
		fingerprints: db.Collection(fingerprintsCollection),
	}

	if _, err := s.songs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, xerrors.New(fmt.Errorf("%w: songs.key index: %v", store.ErrIndexWrite, err))
	}

	if _, err := s.fingerprints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "hash", Value: 1}}},
		{
			Keys:    bson.D{{Key: "song_id", Value: 1}, {Key: "offset", Value: 1}, {Key: "hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return nil, xerrors.New(fmt.Errorf("%w: fingerprints index: %v", store.ErrIndexWrite, err))
	}

	return s, nil
}

func (s *Store) RegisterSong(ctx context.Context, title, artist string) (models.Song, error) {
	key := utils.GenerateSongKey(title, artist)

	if existing, ok, err := s.GetSongByKey(ctx, key); err != nil {
		return models.Song{}, err
	} else if ok {
		return existing, nil
	}

	doc := songDoc{ID: utils.GenerateUniqueID(), Title: title, Artist: artist, Key: key}
	if _, err := s.songs.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if existing, ok, gerr := s.GetSongByKey(ctx, key); gerr == nil && ok {
				return existing, nil
			}
			return models.Song{}, xerrors.New(fmt.Errorf("%w: %v", store.ErrDuplicateSong, err))
		}
		return models.Song{}, xerrors.New(fmt.Errorf("%w: registering song: %v", store.ErrIndexWrite, err))
	}

	return models.Song{ID: doc.ID, Title: doc.Title, Artist: doc.Artist}, nil
}

func (s *Store) GetSongByKey(ctx context.Context, key string) (models.Song, bool, error) {
	var doc songDoc
	err := s.songs.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, xerrors.New(fmt.Errorf("%w: %v", store.ErrIndexRead, err))
	}
	return models.Song{ID: doc.ID, Title: doc.Title, Artist: doc.Artist}, true, nil
}

func (s *Store) StoreFingerprints(ctx context.Context, fingerprints map[uint64]models.Couple) error {
	docs := make([]interface{}, 0, len(fingerprints))
	for hash, couple := range fingerprints {
		docs = append(docs, fingerprintDoc{Hash: hash, SongID: couple.SongID, Offset: couple.AnchorMs})
	}
	if len(docs) == 0 {
		return nil
	}

	_, err := s.fingerprints.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return xerrors.New(fmt.Errorf("%w: bulk insert: %v", store.ErrIndexWrite, err))
	}
	return nil
}

func (s *Store) GetCouples(ctx context.Context, hashes []uint64) (map[uint64][]models.Couple, error) {
	const chunkSize = 1000
	result := make(map[uint64][]models.Couple, len(hashes))

	for start := 0; start < len(hashes); start += chunkSize {
		end := start + chunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		cursor, err := s.fingerprints.Find(ctx, bson.M{"hash": bson.M{"$in": hashes[start:end]}})
		if err != nil {
			return nil, xerrors.New(fmt.Errorf("%w: lookup: %v", store.ErrIndexRead, err))
		}

		var docs []fingerprintDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, xerrors.New(fmt.Errorf("%w: decoding rows: %v", store.ErrDecode, err))
		}

		for _, d := range docs {
			result[d.Hash] = append(result[d.Hash], models.Couple{SongID: d.SongID, AnchorMs: d.Offset})
		}
	}

	return result, nil
}

func (s *Store) TotalFingerprints(ctx context.Context, songID uint32) (uint64, error) {
	n, err := s.fingerprints.CountDocuments(ctx, bson.M{"song_id": songID})
	if err != nil {
		return 0, xerrors.New(fmt.Errorf("%w: counting fingerprints: %v", store.ErrIndexRead, err))
	}
	return uint64(n), nil
}

func (s *Store) TotalSongs(ctx context.Context) (uint64, error) {
	n, err := s.songs.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, xerrors.New(fmt.Errorf("%w: counting songs: %v", store.ErrIndexRead, err))
	}
	return uint64(n), nil
}

func (s *Store) AllSongs(ctx context.Context) ([]models.Song, error) {
	cursor, err := s.songs.Find(ctx, bson.M{})
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("%w: listing songs: %v", store.ErrIndexRead, err))
	}

	var docs []songDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, xerrors.New(fmt.Errorf("%w: decoding songs: %v", store.ErrDecode, err))
	}

	out := make([]models.Song, len(docs))
	for i, d := range docs {
		out[i] = models.Song{ID: d.ID, Title: d.Title, Artist: d.Artist}
	}
	return out, nil
}

func (s *Store) DeleteSong(ctx context.Context, songID uint32) error {
	if _, err := s.fingerprints.DeleteMany(ctx, bson.M{"song_id": songID}); err != nil {
		return xerrors.New(fmt.Errorf("%w: deleting fingerprints: %v", store.ErrIndexWrite, err))
	}
	if _, err := s.songs.DeleteOne(ctx, bson.M{"_id": songID}); err != nil {
		return xerrors.New(fmt.Errorf("%w: deleting song: %v", store.ErrIndexWrite, err))
	}
	return nil
}

var _ store.FingerprintStore = (*Store)(nil)
