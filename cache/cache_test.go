package cache

import "testing"

type testPayload struct {
	Tick   int32
	Health int32
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := NewKey([]byte("demo-bytes"), []string{"m_iHealth"}, []string{"player_death"})

	want := testPayload{Tick: 5, Health: 100}
	if err := store.Store(key, want); err != nil {
		t.Fatal(err)
	}

	var got testPayload
	found, err := store.Load(key, &got)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadMissReturnsFalseNotError(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got testPayload
	found, err := store.Load(Key("nonexistent"), &got)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected a cache miss")
	}
}

func TestNewKeyDiffersByWantedProps(t *testing.T) {
	a := NewKey([]byte("same-file"), []string{"m_iHealth"}, nil)
	b := NewKey([]byte("same-file"), []string{"m_angEyeAngles"}, nil)
	if a == b {
		t.Fatal("expected different wanted props to produce different keys")
	}
}
