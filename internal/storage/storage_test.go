package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTransientErrorMarking(t *testing.T) {
	base := errors.New("backend hiccup")
	err := NewTransientError(base)
	if !IsTransient(err) {
		t.Fatal("expected marked error to report transient")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected unwrap to reach the base error")
	}
	wrapped := fmt.Errorf("put object: %w", err)
	if !IsTransient(wrapped) {
		t.Fatal("expected transient marker to survive wrapping")
	}
	if IsTransient(base) {
		t.Fatal("unmarked error must not report transient")
	}
	if NewTransientError(nil) != nil {
		t.Fatal("marking nil must stay nil")
	}
}

type pagingBackend struct {
	Backend
	keys []string
}

func (b *pagingBackend) ListObjects(_ context.Context, opts ListOptions) (*ListResult, error) {
	res := &ListResult{}
	added := 0
	for _, key := range b.keys {
		if opts.StartAfter != "" && key <= opts.StartAfter {
			continue
		}
		if opts.Limit > 0 && added >= opts.Limit {
			res.Truncated = true
			res.NextStartAfter = res.Objects[len(res.Objects)-1].Key
			return res, nil
		}
		res.Objects = append(res.Objects, ObjectInfo{Key: key})
		added++
	}
	return res, nil
}

func TestVisitObjectsPagesThroughBackend(t *testing.T) {
	backend := &pagingBackend{keys: []string{"a", "b", "c", "d", "e"}}
	var seen []string
	err := VisitObjects(context.Background(), backend, "", 2, func(obj ObjectInfo) error {
		seen = append(seen, obj.Key)
		return nil
	})
	if err != nil {
		t.Fatalf("visit objects: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 keys, got %v", seen)
	}
	for i, key := range []string{"a", "b", "c", "d", "e"} {
		if seen[i] != key {
			t.Fatalf("expected %q at %d, got %v", key, i, seen)
		}
	}
}

func TestVisitObjectsStopsOnVisitError(t *testing.T) {
	backend := &pagingBackend{keys: []string{"a", "b", "c"}}
	boom := errors.New("boom")
	count := 0
	err := VisitObjects(context.Background(), backend, "", 10, func(ObjectInfo) error {
		count++
		if count == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected visit error, got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected visit to stop after error, got %d calls", count)
	}
}
