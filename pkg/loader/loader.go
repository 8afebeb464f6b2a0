package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/perbu/groundrag/pkg/rag"
	"go.uber.org/zap"
)

const (
	DefaultChunkSize = 300
	DefaultOverlap   = 50
)

// Extensions lists the recognized document extensions, lower case.
var Extensions = []string{".txt", ".md", ".pdf"}

// Options controls corpus assembly.
type Options struct {
	ChunkSize int
	Overlap   int
	Log       *zap.Logger
}

// Chunk splits text on whitespace and returns windows of size words. Each
// window starts size-overlap words after the previous one, so consecutive
// windows share overlap words. Text without words yields no chunks.
func Chunk(text string, size, overlap int) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	if size <= 0 {
		return nil, ragerr.Errorf(ragerr.CodeChunkerArgsInvalid, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, ragerr.Errorf(ragerr.CodeChunkerArgsInvalid, "overlap must be in [0, %d), got %d", size, overlap)
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}

// ListDocuments returns the names of the recognized documents directly
// under root, sorted by filename.
func ListDocuments(fsys fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeCorpusDocsDirInvalid, "listing documents", ragerr.FieldPath(root))
	}

	// fs.ReadDir returns entries sorted by filename.
	var names []string
	for _, e := range entries {
		if e.IsDir() || !recognized(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func recognized(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// ReadDocument returns the text of a document. Text and markdown files must
// be valid UTF-8; PDF files have their plain text extracted.
func ReadDocument(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", ragerr.Wrap(err, ragerr.CodeCorpusDocumentReadFailed, "reading document", ragerr.FieldPath(name))
	}

	if strings.EqualFold(path.Ext(name), ".pdf") {
		text, err := pdfText(data)
		if err != nil {
			return "", ragerr.Wrap(err, ragerr.CodeCorpusDocumentReadFailed, "extracting pdf text", ragerr.FieldPath(name))
		}
		return text, nil
	}

	if !utf8.Valid(data) {
		return "", ragerr.New(ragerr.CodeCorpusDocumentReadFailed, "document is not valid UTF-8", ragerr.FieldPath(name))
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildCorpus reads every recognized document in dir, chunks it, and returns
// the chunks in document order then chunk order. Position is the index into
// the returned slice.
func BuildCorpus(dir string, opts Options) ([]rag.Chunk, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, ragerr.Wrap(err, ragerr.CodeCorpusDocsDirInvalid, "opening documents directory", ragerr.FieldPath(dir))
	}
	return BuildCorpusFS(os.DirFS(dir), ".", opts)
}

// BuildCorpusFS is BuildCorpus over an fs.FS rooted at root.
func BuildCorpusFS(fsys fs.FS, root string, opts Options) ([]rag.Chunk, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	names, err := ListDocuments(fsys, root)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ragerr.New(ragerr.CodeCorpusBuildEmpty, "no documents found", ragerr.FieldPath(root))
	}

	var corpus []rag.Chunk
	for i, name := range names {
		text, err := ReadDocument(fsys, path.Join(root, name))
		if err != nil {
			return nil, err
		}
		windows, err := Chunk(text, opts.ChunkSize, opts.Overlap)
		if err != nil {
			return nil, err
		}

		docID := fmt.Sprintf("doc_%d", i)
		for j, w := range windows {
			corpus = append(corpus, rag.Chunk{
				DocID:    docID,
				ChunkID:  j,
				Text:     w,
				Source:   name,
				Position: len(corpus),
			})
		}
		log.Debug("document chunked",
			zap.String("doc_id", docID),
			zap.String("source", name),
			zap.Int("chunks", len(windows)),
		)
	}

	if len(corpus) == 0 {
		return nil, ragerr.New(ragerr.CodeCorpusBuildEmpty, "documents produced no chunks",
			ragerr.FieldPath(root),
			ragerr.Field("documents", len(names)),
		)
	}

	log.Info("corpus built", zap.Int("documents", len(names)), zap.Int("chunks", len(corpus)))
	return corpus, nil
}
