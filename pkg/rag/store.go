package rag

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	ragerr "github.com/perbu/groundrag/pkg/errors"
)

const (
	IndexFile  = "vectors.gob"
	CorpusFile = "corpus.gob"

	formatVersion = 2
)

// indexData is the on-disk form of an Index. IDs carries the explicit join
// key against corpusData.Chunks[i].Position, and CorpusHash ties the file
// to the exact corpus it was built from.
type indexData struct {
	Version    int
	ModelInfo  string
	Dimension  int
	CorpusHash string
	IDs        []int
	Vectors    [][]float32
}

type corpusData struct {
	Version    int
	CorpusHash string
	Chunks     []Chunk
}

// Store persists an Index and its corpus as a pair of files in one
// directory. The two files are always written and read together.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) IndexPath() string {
	return filepath.Join(s.dir, IndexFile)
}

func (s *Store) CorpusPath() string {
	return filepath.Join(s.dir, CorpusFile)
}

// Exists reports whether both index files are present.
func (s *Store) Exists() bool {
	for _, p := range []string{s.IndexPath(), s.CorpusPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Save writes the index and corpus. Both files are first written to
// temporary names and only renamed into place once both encodings
// succeeded.
func (s *Store) Save(ix *Index, corpus []Chunk, modelInfo string) error {
	if err := checkAlignment(ix, corpus); err != nil {
		return err
	}

	ids := make([]int, len(corpus))
	for i, c := range corpus {
		ids[i] = c.Position
	}
	hash := corpusHash(corpus)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "creating index directory", ragerr.FieldPath(s.dir))
	}

	indexTmp := s.IndexPath() + ".tmp"
	corpusTmp := s.CorpusPath() + ".tmp"
	defer func() {
		_ = os.Remove(indexTmp)
		_ = os.Remove(corpusTmp)
	}()

	err := writeGob(indexTmp, indexData{
		Version:    formatVersion,
		ModelInfo:  modelInfo,
		Dimension:  ix.Dimension(),
		CorpusHash: hash,
		IDs:        ids,
		Vectors:    ix.vectors,
	})
	if err != nil {
		return err
	}
	if err := writeGob(corpusTmp, corpusData{Version: formatVersion, CorpusHash: hash, Chunks: corpus}); err != nil {
		return err
	}

	if err := os.Rename(indexTmp, s.IndexPath()); err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "renaming index file", ragerr.FieldPath(s.IndexPath()))
	}
	if err := os.Rename(corpusTmp, s.CorpusPath()); err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "renaming corpus file", ragerr.FieldPath(s.CorpusPath()))
	}
	return nil
}

// Load reads both files back and verifies that they come from the same
// build and are still aligned position for position. A pair left behind by
// an interrupted Save, or a corpus copied in from another build, is
// rejected as corrupt.
func (s *Store) Load() (*Index, []Chunk, Meta, error) {
	var id indexData
	if err := readGob(s.IndexPath(), &id); err != nil {
		return nil, nil, Meta{}, err
	}
	var cd corpusData
	if err := readGob(s.CorpusPath(), &cd); err != nil {
		return nil, nil, Meta{}, err
	}

	if id.Version != formatVersion || cd.Version != formatVersion {
		return nil, nil, Meta{}, ragerr.New(ragerr.CodeIndexCorrupt, "unsupported index format version",
			ragerr.Field("index_version", id.Version),
			ragerr.Field("corpus_version", cd.Version),
		)
	}
	if len(id.IDs) != len(id.Vectors) {
		return nil, nil, Meta{}, ragerr.New(ragerr.CodeIndexCorrupt, "index ids and vectors differ in length",
			ragerr.FieldPath(s.IndexPath()),
		)
	}

	if id.Dimension <= 0 {
		return nil, nil, Meta{}, ragerr.New(ragerr.CodeIndexCorrupt, "index has no dimension", ragerr.FieldPath(s.IndexPath()))
	}
	ix := &Index{dimension: id.Dimension}
	for i, v := range id.Vectors {
		if id.IDs[i] != i {
			return nil, nil, Meta{}, ragerr.New(ragerr.CodeIndexCorrupt, "index vector id out of order",
				ragerr.Field("position", i),
				ragerr.Field("id", id.IDs[i]),
			)
		}
		if err := ix.Add(v); err != nil {
			return nil, nil, Meta{}, err
		}
	}

	if err := checkAlignment(ix, cd.Chunks); err != nil {
		return nil, nil, Meta{}, err
	}
	if id.CorpusHash != cd.CorpusHash || corpusHash(cd.Chunks) != id.CorpusHash {
		return nil, nil, Meta{}, ragerr.New(ragerr.CodeIndexCorrupt, "index and corpus files come from different builds",
			ragerr.FieldPath(s.dir),
		)
	}

	meta := Meta{ModelInfo: id.ModelInfo, Dimension: id.Dimension, Count: ix.Len()}
	return ix, cd.Chunks, meta, nil
}

// checkAlignment enforces that corpus[i] describes index vector i.
func checkAlignment(ix *Index, corpus []Chunk) error {
	if ix.Len() != len(corpus) {
		return ragerr.New(ragerr.CodeIndexCorrupt, "index and corpus sizes differ",
			ragerr.Field("vectors", ix.Len()),
			ragerr.Field("chunks", len(corpus)),
		)
	}
	for i, c := range corpus {
		if c.Position != i {
			return ragerr.New(ragerr.CodeIndexCorrupt, "corpus chunk position does not match index position",
				ragerr.Field("position", i),
				ragerr.Field("chunk_position", c.Position),
				ragerr.Field("source", c.Source),
			)
		}
	}
	return nil
}

// corpusHash fingerprints every field of every chunk, in order.
func corpusHash(corpus []Chunk) string {
	h := sha256.New()
	var n [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(n[:], uint64(v))
		h.Write(n[:])
	}
	for _, c := range corpus {
		writeInt(c.Position)
		writeString(c.DocID)
		writeInt(c.ChunkID)
		writeString(c.Source)
		writeString(c.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeGob(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "creating file", ragerr.FieldPath(path))
	}

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		_ = file.Close()
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "encoding", ragerr.FieldPath(path))
	}

	if err := file.Close(); err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "closing file", ragerr.FieldPath(path))
	}
	return nil
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ragerr.New(ragerr.CodeIndexNotFound, "index not found, run the index command first", ragerr.FieldPath(path))
		}
		return ragerr.Wrap(err, ragerr.CodeIndexStoreIOFailure, "opening file", ragerr.FieldPath(path))
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return ragerr.Wrap(err, ragerr.CodeIndexCorrupt, "decoding", ragerr.FieldPath(path))
	}
	return nil
}
