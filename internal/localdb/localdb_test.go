package localdb

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	root := t.TempDir()
	db, err := Open(root, "", "en", "fr")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	db.Put("chat", "char")
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !db.SetLanguagePair("en", "fr") {
		t.Fatal("SetLanguagePair() = false")
	}

	got, ok := db.Get("chat")
	if !ok || got != "char" {
		t.Errorf("Get(chat) = (%q, %v), want (char, true)", got, ok)
	}
}

func TestReopenSameDirKeepsBufferedPairs(t *testing.T) {
	root := t.TempDir()
	db, err := Open(root, ".", "en", "ru")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Put("chat", "char")

	next, err := Reopen(db, root, ".", "en", "ru")
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if next != db {
		t.Error("Reopen() on the same dir should keep the instance")
	}
	if got, ok := next.Get("chat"); !ok || got != "char" {
		t.Errorf("Get(chat) = (%q, %v), want (char, true)", got, ok)
	}
	if next.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after the switch flushed", next.Pending())
	}

	// A late Put from work started before the reload still lands in the live db.
	db.Put("dog", "собака")
	if got, ok := next.Get("dog"); !ok || got != "собака" {
		t.Errorf("Get(dog) = (%q, %v), want (собака, true)", got, ok)
	}
}

func TestReopenOtherDirFlushesPrevious(t *testing.T) {
	root := t.TempDir()
	db, _ := Open(root, "a", "en", "ru")
	db.Put("chat", "char")

	next, err := Reopen(db, root, "b", "en", "ru")
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if next == db {
		t.Error("Reopen() on another dir should open a new instance")
	}
	if db.Pending() != 0 {
		t.Errorf("previous Pending() = %d, want 0", db.Pending())
	}

	again, _ := Open(root, "a", "en", "ru")
	if got, ok := again.Get("chat"); !ok || got != "char" {
		t.Errorf("Get(chat) from flushed dir = (%q, %v), want (char, true)", got, ok)
	}
}

func TestReopenNil(t *testing.T) {
	db, err := Reopen(nil, t.TempDir(), "", "en", "ru")
	if err != nil || db == nil || !db.Usable() {
		t.Errorf("Reopen(nil) = %v, %v", db, err)
	}
}

func TestMissingFilesAreEmpty(t *testing.T) {
	db, err := Open(t.TempDir(), "game", "en", "ru")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if db.Len() != 0 || !db.Usable() {
		t.Errorf("Len() = %d Usable() = %v, want 0 true", db.Len(), db.Usable())
	}
	if _, ok := db.Get("anything"); ok {
		t.Error("Get() on empty db should miss")
	}
}

func TestLoadAlignedLines(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "en.txt"), "hello\nworld\n")
	write(t, filepath.Join(root, "de.txt"), "hallo\r\nwelt\r\n")

	db, err := Open(root, "", "en", "de")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got, _ := db.Get("world"); got != "welt" {
		t.Errorf("Get(world) = %q, want welt", got)
	}
	if db.Len() != 2 {
		t.Errorf("Len() = %d, want 2", db.Len())
	}
}

func TestPutIsIdempotent(t *testing.T) {
	db, _ := Open(t.TempDir(), "", "en", "ru")

	db.Put("cat", "кот")
	db.Put("cat", "кошка")
	db.Put("", "пусто")

	if got, _ := db.Get("cat"); got != "кот" {
		t.Errorf("Get(cat) = %q, want first value кот", got)
	}
	if db.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", db.Pending())
	}
}

func TestFlushAppendsAndClears(t *testing.T) {
	root := t.TempDir()
	db, _ := Open(root, "sub", "en", "ru")

	db.Put("one", "один")
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	db.Put("two", "два")
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if db.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", db.Pending())
	}

	data, err := os.ReadFile(filepath.Join(root, "sub", "ru.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "один\nдва\n" {
		t.Errorf("ru.txt = %q", data)
	}
}

func TestMultilineTextSurvives(t *testing.T) {
	root := t.TempDir()
	db, _ := Open(root, "", "en", "ru")
	db.Put("line one\nline two", "строка\\один")
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Open(root, "", "en", "ru")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := reloaded.Get("line one\nline two"); !ok || got != "строка\\один" {
		t.Errorf("Get() = (%q, %v)", got, ok)
	}
}

func TestSetLanguagePairFlushesOldPair(t *testing.T) {
	root := t.TempDir()
	db, _ := Open(root, "", "en", "ru")
	db.Put("yes", "да")

	if !db.SetLanguagePair("en", "de") {
		t.Fatal("SetLanguagePair() = false")
	}
	if _, ok := db.Get("yes"); ok {
		t.Error("en->de should not know en->ru pairs")
	}
	if _, err := os.Stat(filepath.Join(root, "ru.txt")); err != nil {
		t.Errorf("old pair should be flushed: %v", err)
	}
}

func TestSetLanguagePairFailureIsUnusable(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "xx.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	db, _ := Open(root, "", "en", "ru")

	if db.SetLanguagePair("en", "xx") {
		t.Fatal("SetLanguagePair() should fail when a file cannot be read")
	}
	if db.Usable() {
		t.Error("db should be unusable after a failed load")
	}
	db.Put("a b", "c d")
	if _, ok := db.Get("a b"); ok {
		t.Error("unusable db should ignore Put")
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "en.txt"), "")
	write(t, filepath.Join(root, "ru.txt"), "")
	write(t, filepath.Join(root, "game", "en.txt"), "")
	write(t, filepath.Join(root, "game", "ja.txt"), "")
	write(t, filepath.Join(root, "half", "en.txt"), "")
	write(t, filepath.Join(root, "other", "notes.txt"), "")

	dirs, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(dirs) != 2 || dirs[0] != "." || dirs[1] != "game" {
		t.Errorf("Scan() = %v, want [. game]", dirs)
	}

	if dirs, err := Scan(filepath.Join(root, "missing")); err != nil || len(dirs) != 0 {
		t.Errorf("Scan(missing) = (%v, %v), want empty", dirs, err)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "a\nb", `back\slash`, "cr\r", `\n literal`} {
		if got := unescape(escape(s)); got != s {
			t.Errorf("unescape(escape(%q)) = %q", s, got)
		}
	}
}

func write(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}
