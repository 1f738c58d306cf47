package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreSavesAndExpiresDigests(t *testing.T) {
	raw, err := openBolt(filepath.Join(t.TempDir(), "nested", "snapshots.db"), Options{
		DigestTTL:       time.Hour,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }

	if _, ok, err := store.LastDigest("octocat"); err != nil || ok {
		t.Fatalf("expected no digest, ok=%v err=%v", ok, err)
	}

	if err := store.SaveDigest("octocat", "abc"); err != nil {
		t.Fatalf("SaveDigest: %v", err)
	}
	digest, ok, err := store.LastDigest("octocat")
	if err != nil || !ok || digest != "abc" {
		t.Fatalf("expected abc, got %q ok=%v err=%v", digest, ok, err)
	}

	if err := store.SaveDigest("octocat", "def"); err != nil {
		t.Fatalf("SaveDigest overwrite: %v", err)
	}
	if digest, _, _ := store.LastDigest("octocat"); digest != "def" {
		t.Fatalf("expected overwritten digest, got %q", digest)
	}

	clock = clock.Add(2 * time.Hour)
	if _, ok, err := store.LastDigest("octocat"); err != nil || ok {
		t.Fatalf("expected expired digest, ok=%v err=%v", ok, err)
	}

	// The sweep ran on the read above, so the key is physically gone.
	var present bool
	_ = store.db.View(func(tx *bolt.Tx) error {
		present = tx.Bucket([]byte(snapshotBucket)).Get([]byte("octocat")) != nil
		return nil
	})
	if present {
		t.Fatalf("expected expired entry to be swept")
	}
}

func TestDecodeEntryRejectsShortValues(t *testing.T) {
	if _, _, ok := decodeEntry(nil); ok {
		t.Fatalf("nil value decoded")
	}
	if _, _, ok := decodeEntry(make([]byte, expiryBytes)); ok {
		t.Fatalf("value without digest decoded")
	}
	exp := time.Unix(1700000000, 0)
	got, digest, ok := decodeEntry(encodeEntry(exp, "d1"))
	if !ok || !got.Equal(exp) || digest != "d1" {
		t.Fatalf("round trip failed: %v %q %v", got, digest, ok)
	}
}

func TestNewStoreTypes(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveDigest("x", "y"); err != nil {
		t.Fatalf("noop SaveDigest: %v", err)
	}
	if _, ok, _ := store.LastDigest("x"); ok {
		t.Fatalf("noop store must not remember digests")
	}

	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
