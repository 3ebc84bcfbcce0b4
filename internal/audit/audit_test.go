// ABOUTME: Tests for the SQLite audit store, keyword tagger, and failure-swallowing hook.
// ABOUTME: Uses a temporary database per test to avoid cross-test leakage.

package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &Entry{
		Action:   "invoke:create_kotlin_file",
		Resource: "app/src/main/MainActivity.kt",
		Details:  `{"class_name":"MainActivity"}`,
		Flags:    []Flag{FlagPersonalData},
	}
	require.NoError(t, s.Append(ctx, e))
	assert.NotEmpty(t, e.ID, "Append generates an id")
	assert.False(t, e.Timestamp.IsZero(), "Append generates a timestamp")

	entries, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "invoke:create_kotlin_file", got.Action)
	assert.Equal(t, []Flag{FlagPersonalData}, got.Flags)
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.Append(ctx, &Entry{Action: "invoke:gradle_build", Timestamp: old}))
	require.NoError(t, s.Append(ctx, &Entry{Action: "invoke:run_tests"}))

	t.Run("by action", func(t *testing.T) {
		entries, err := s.List(ctx, Filter{Action: "invoke:run_tests"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "invoke:run_tests", entries[0].Action)
	})

	t.Run("by since", func(t *testing.T) {
		since := time.Now().UTC().Add(-time.Hour)
		entries, err := s.List(ctx, Filter{Since: &since})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "invoke:run_tests", entries[0].Action)
	})

	t.Run("limit normalization", func(t *testing.T) {
		assert.Equal(t, 100, normalizeLimit(0))
		assert.Equal(t, 100, normalizeLimit(-5))
		assert.Equal(t, 1000, normalizeLimit(5000))
		assert.Equal(t, 7, normalizeLimit(7))
	})
}

func TestListOrdersSubsecondEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A whole-second timestamp and a later one inside the same second. A
	// trimmed-zero text format would sort these backwards ("...00Z" is
	// lexicographically after "...00.5Z").
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, &Entry{Action: "invoke:gradle_build", Timestamp: base}))
	require.NoError(t, s.Append(ctx, &Entry{Action: "result:gradle_build", Timestamp: base.Add(500 * time.Millisecond)}))

	entries, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "result:gradle_build", entries[0].Action, "newest first")
	assert.Equal(t, "invoke:gradle_build", entries[1].Action)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
}

func TestRecordAccess(t *testing.T) {
	s := newTestStore(t)
	a := &Access{DataType: "file", AccessType: "read", Actor: "client"}
	require.NoError(t, s.RecordAccess(context.Background(), a))
	assert.NotEmpty(t, a.ID)
}

func TestKeywordTagger(t *testing.T) {
	tagger := NewKeywordTagger()

	tests := []struct {
		name     string
		action   string
		resource string
		want     []Flag
	}{
		{"plain action", "invoke:gradle_build", "app/build.gradle", nil},
		{"personal keyword in resource", "invoke:create_kotlin_file", "UserProfileScreen.kt", []Flag{FlagPersonalData}},
		{"email keyword", "invoke:create_kotlin_file", "EmailValidator.kt", []Flag{FlagPersonalData}},
		{"health keyword", "invoke:create_kotlin_file", "PatientRecord.kt", []Flag{FlagHealthData}},
		{"hipaa in action", "invoke:implement_hipaa_compliance", "", []Flag{FlagHealthData}},
		{"both sets match", "invoke:encrypt_sensitive_data", "patient_profile.json", []Flag{FlagPersonalData, FlagHealthData}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tagger.Tag(tt.action, tt.resource))
		})
	}
}

// failingStore always errors, to prove the hook swallows store failures.
type failingStore struct{}

func (failingStore) Append(context.Context, *Entry) error       { return errors.New("disk full") }
func (failingStore) List(context.Context, Filter) ([]Entry, error) { return nil, errors.New("disk full") }
func (failingStore) RecordAccess(context.Context, *Access) error { return errors.New("disk full") }
func (failingStore) Close() error                                { return nil }

func TestHookSwallowsStoreFailures(t *testing.T) {
	h := NewHook(failingStore{}, nil, nil)
	ctx := context.Background()

	// None of these may panic or propagate the store error.
	h.PreCall(ctx, "gradle_build", "app/", "{}")
	h.PostCall(ctx, "gradle_build", true, time.Second)
	h.FileAccess(ctx, "/tmp/project/build.gradle")
	h.SecurityViolation(ctx, "path traversal attempt")
}

func TestHookWritesTrail(t *testing.T) {
	s := newTestStore(t)
	h := NewHook(s, nil, nil)
	ctx := context.Background()

	h.PreCall(ctx, "create_kotlin_file", "PatientCard.kt", `{"class_name":"PatientCard"}`)
	h.PostCall(ctx, "create_kotlin_file", false, 20*time.Millisecond)

	entries, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var pre *Entry
	for i := range entries {
		if entries[i].Action == "invoke:create_kotlin_file" {
			pre = &entries[i]
		}
	}
	require.NotNil(t, pre)
	assert.Equal(t, []Flag{FlagHealthData}, pre.Flags)
	assert.Equal(t, "PatientCard.kt", pre.Resource)
}
