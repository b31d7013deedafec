package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	key  string
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *in.Key
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveKeyLayout(t *testing.T) {
	fake := &fakeS3{}
	a := newWithAPI(fake, "deliv-archive", "webhooks")
	a.now = func() time.Time { return time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC) }

	key, err := a.Archive(context.Background(), []byte(`{"eventType":"Bounce"}`))
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if !strings.HasPrefix(key, "webhooks/2025/06/03/") || !strings.HasSuffix(key, ".json") {
		t.Errorf("Archive() key = %q, want webhooks/2025/06/03/<uuid>.json", key)
	}
	if string(fake.body) != `{"eventType":"Bounce"}` {
		t.Errorf("archived body = %s", fake.body)
	}
}

func TestArchiveError(t *testing.T) {
	a := newWithAPI(&fakeS3{err: errors.New("access denied")}, "deliv-archive", "webhooks")

	if _, err := a.Archive(context.Background(), []byte("{}")); err == nil {
		t.Fatal("Archive() expected error")
	}
}
