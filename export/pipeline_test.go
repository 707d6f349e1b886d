package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatkit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageAt(sender core.Sender, text string, hour, min, sec int) core.Message {
	msg := core.NewDialogueMessage(sender, text)
	msg.Timestamp = time.Date(2025, 3, 14, hour, min, sec, 0, time.Local)
	return msg
}

func TestExportEmptyHistory(t *testing.T) {
	p := NewPipeline(DefaultConfig(), nil)
	doc, err := p.Export(nil)
	assert.ErrorIs(t, err, ErrEmptyHistory)
	assert.Nil(t, doc)
}

func TestExportFormatsTranscriptLines(t *testing.T) {
	p := NewPipeline(DefaultConfig(), nil)
	history := []core.Message{
		messageAt(core.SenderUser, "hi", 10, 0, 0),
		messageAt(core.SenderBot, "hello", 10, 0, 1),
	}

	doc, err := p.Export(history)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "[10:00:00] USER: hi", doc.Lines[0])
	assert.Equal(t, "[10:00:01] BOT: hello", doc.Lines[1])
	assert.NotEmpty(t, doc.Bytes)
	assert.True(t, len(doc.Bytes) > 4 && string(doc.Bytes[:4]) == "%PDF", "output must be a PDF")
}

func TestExportPaginatesLongHistories(t *testing.T) {
	p := NewPipeline(DefaultConfig(), nil)

	short := []core.Message{messageAt(core.SenderUser, "hi", 9, 0, 0)}
	shortDoc, err := p.Export(short)
	require.NoError(t, err)

	long := make([]core.Message, 200)
	for i := range long {
		long[i] = messageAt(core.SenderUser, "a reasonably long line of transcript text that may wrap once", 9, 0, i%60)
	}
	longDoc, err := p.Export(long)
	require.NoError(t, err)

	assert.Greater(t, len(longDoc.Bytes), len(shortDoc.Bytes))
	require.Len(t, longDoc.Lines, 200)
}

func TestFilenameConvention(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 2, 3, 999_000_000, time.UTC)
	assert.Equal(t, "chat_export_2025-03-14-10-02-03.pdf", Filename(at))

	// The stamp is always UTC, regardless of the local zone.
	east := time.Date(2025, 3, 14, 10, 2, 3, 0, time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, "chat_export_2025-03-14-08-02-03.pdf", Filename(east))
}

func TestFileSinkWritesDocument(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	doc := &Document{Bytes: []byte("%PDF-fake"), Filename: "chat_export_test.pdf"}
	require.NoError(t, sink.Save(context.Background(), doc))

	data, err := os.ReadFile(filepath.Join(dir, doc.Filename))
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes, data)
}
