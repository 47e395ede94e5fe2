package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

// DefaultArchiveName is the filename used for a full export.
const DefaultArchiveName = "tts_audio.zip"

// Kinds reported to the observer.
const (
	KindArchive = "archive"
	KindSingle  = "single"
)

// Encoder converts a base64 PCM payload to MP3.
type Encoder interface {
	Encode(ctx context.Context, b64 string) ([]byte, error)
}

// SyncEncoder converts without yielding to the scheduler. Archives prefer it
// when the Encoder provides it; single downloads always use Encode.
type SyncEncoder interface {
	EncodeSync(b64 string) ([]byte, error)
}

// Exporter packages block audio.
type Exporter struct {
	enc      Encoder
	compress bool
	observe  func(kind string)
	// pause lets a busy indicator render before heavy encoding starts.
	pause time.Duration
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCompression deflates archive entries. MP3 barely shrinks, so entries
// are stored by default.
func WithCompression(on bool) Option {
	return func(e *Exporter) { e.compress = on }
}

// WithObserver is called once per successful export.
func WithObserver(fn func(kind string)) Option {
	return func(e *Exporter) { e.observe = fn }
}

// WithPause sets the delay before a single-block encode.
func WithPause(d time.Duration) Option {
	return func(e *Exporter) { e.pause = d }
}

// New creates an exporter around enc.
func New(enc Encoder, opts ...Option) *Exporter {
	e := &Exporter{enc: enc, pause: 10 * time.Millisecond}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Entry is one named file of an export.
type Entry struct {
	Name string
	Data []byte
}

// Archive encodes every block that carries audio and zips the results.
// Blocks keep their list position in the entry names.
func (e *Exporter) Archive(ctx context.Context, list []blocks.Block) ([]byte, error) {
	entries, err := e.Entries(ctx, list)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	method := zip.Store
	if e.compress {
		method = zip.Deflate
	}
	for _, entry := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   method,
			Modified: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	log.Info("archive exported", "entries", len(entries), "bytes", buf.Len())
	e.done(KindArchive)
	return buf.Bytes(), nil
}

// Entries encodes every block that carries audio and names it for an
// archive. It fails with a nothing-to-export error when no entry results.
// A cancelled ctx stops the export between blocks.
func (e *Exporter) Entries(ctx context.Context, list []blocks.Block) ([]Entry, error) {
	encode := func(b64 string) ([]byte, error) { return e.enc.Encode(ctx, b64) }
	if se, ok := e.enc.(SyncEncoder); ok {
		encode = se.EncodeSync
	}

	var entries []Entry
	for i, b := range list {
		if !b.HasAudio() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := encode(b.AudioData)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", b.ID, err)
		}
		entries = append(entries, Entry{Name: ArchiveFilename(b, i), Data: data})
	}
	if len(entries) == 0 {
		return nil, tts.NothingToExportError()
	}
	return entries, nil
}

// Block encodes one block for download. index is the block's zero-based
// position in the list and only affects the name of untitled blocks.
func (e *Exporter) Block(ctx context.Context, b blocks.Block, index int) (Entry, error) {
	if !b.HasAudio() {
		return Entry{}, tts.NothingToExportError().WithContext("block", b.ID)
	}
	if e.pause > 0 {
		select {
		case <-time.After(e.pause):
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
	}
	data, err := e.enc.Encode(ctx, b.AudioData)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", b.ID, err)
	}
	e.done(KindSingle)
	return Entry{Name: SingleFilename(b, index), Data: data}, nil
}

func (e *Exporter) done(kind string) {
	if e.observe != nil {
		e.observe(kind)
	}
}
