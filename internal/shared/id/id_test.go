package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{AnomalyPrefix, ExamplePrefix, ConnPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Errorf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if len(parts[1]) != 26 {
			t.Errorf("ULID part should be 26 characters, got %d", len(parts[1]))
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	anomID := NewAnomalyID()
	exID := NewExampleID()
	connID := NewConnID()

	if !strings.HasPrefix(anomID.String(), "anom_") {
		t.Errorf("AnomalyID should start with 'anom_', got: %s", anomID)
	}
	if !strings.HasPrefix(exID.String(), "ex_") {
		t.Errorf("ExampleID should start with 'ex_', got: %s", exID)
	}
	if !strings.HasPrefix(connID.String(), "conn_") {
		t.Errorf("ConnID should start with 'conn_', got: %s", connID)
	}
}

func TestIDsSortByTime(t *testing.T) {
	gen := NewGenerator()

	first := gen.Generate().String()
	time.Sleep(2 * time.Millisecond)
	second := gen.Generate().String()

	if !(first < second) {
		t.Errorf("ULIDs should sort by creation time: %s >= %s", first, second)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const n = 100
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.Generate().String()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("Duplicate ID generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}
