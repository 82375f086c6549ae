package upstream

import (
	"testing"
)

type fixture struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestDecodeObjectBare(t *testing.T) {
	t.Parallel()

	var got fixture
	if err := decodeObject([]byte(`{"id":"1","name":"a"}`), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "1" || got.Name != "a" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDecodeObjectEnveloped(t *testing.T) {
	t.Parallel()

	var got fixture
	if err := decodeObject([]byte(`{"data":{"id":"2","name":"b"}}`), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "2" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDecodeListShapes(t *testing.T) {
	t.Parallel()

	shapes := []string{
		`[{"id":"1","name":"a"},{"id":"2","name":"b"}]`,
		`{"data":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`,
		`{"offers":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`,
		`{"listings":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`,
		`{"items":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`,
		`{"data":{"items":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}}`,
	}
	for _, shape := range shapes {
		var got []fixture
		if err := decodeList([]byte(shape), &got); err != nil {
			t.Fatalf("shape %s: unexpected error: %v", shape, err)
		}
		if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
			t.Fatalf("shape %s: unexpected result %+v", shape, got)
		}
	}
}

func TestDecodeListRejectsUnknownShape(t *testing.T) {
	t.Parallel()

	var got []fixture
	if err := decodeList([]byte(`{"results":[]}`), &got); err == nil {
		t.Fatal("expected error for unknown wrapper key")
	}
	if err := decodeList([]byte(``), &got); err == nil {
		t.Fatal("expected error for empty body")
	}
}
