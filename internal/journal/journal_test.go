package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ohhey/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestFileStoreAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohhey.journal.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: at, Kind: KindEmote, EmoteID: 42, EmoteName: "Hug", InitiatorID: 200, InitiatorName: "Bob Brightwood", WorldID: 11},
		{At: at.Add(time.Second), Kind: KindTarget, InitiatorID: 300, InitiatorName: "Cara Dawn", WorldID: 10},
	}
	for _, e := range entries {
		if err := st.Append(context.Background(), e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var got []fileRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r fileRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad journal line %q: %v", sc.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("journal lines = %d, want 2", len(got))
	}
	if got[0].Kind != "emote" || got[0].EmoteID != 42 || got[0].InitiatorName != "Bob Brightwood" {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Kind != "target" || got[1].InitiatorID != 300 {
		t.Fatalf("unexpected second record %+v", got[1])
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected missing-path error")
	}
}

func TestAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohhey.journal.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Append(context.Background(), Entry{Kind: KindEmote}); err == nil {
		t.Fatal("expected error appending after close")
	}
}
