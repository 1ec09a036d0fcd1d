package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDir_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.svg", "<svg/>")
	writeFile(t, root, "nested/deeper/B.SVG", "<svg/>")
	writeFile(t, root, "nested/readme.txt", "hi")
	writeFile(t, root, "c.svgz", "x")

	got, err := Dir{Root: root}.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	want := []string{"a.svg", "nested/deeper/B.SVG"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if got[0].Path != filepath.Join(root, "a.svg") {
		t.Errorf("path = %q, want absolute file path", got[0].Path)
	}
}

func TestDir_ListMissingRoot(t *testing.T) {
	_, err := Dir{Root: filepath.Join(t.TempDir(), "nope")}.List(context.Background())
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestDir_Read(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x/a.svg", "<svg/>")
	d := Dir{Root: root, MaxBytes: 6}

	got, err := d.Read(context.Background(), scan.Subject{ID: "x/a.svg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "<svg/>" {
		t.Errorf("content = %q, want %q", got, "<svg/>")
	}

	writeFile(t, root, "big.svg", "<svg></svg>")
	if _, err := d.Read(context.Background(), scan.Subject{ID: "big.svg"}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

type fakeS3 struct {
	pages   [][]string
	objects map[string]string
	calls   int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	i := 0
	if in.ContinuationToken != nil {
		i = int(aws.ToString(in.ContinuationToken)[0] - '0')
	}
	f.calls++

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(i+1 < len(f.pages))}
	for _, k := range f.pages[i] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if i+1 < len(f.pages) {
		out.NextContinuationToken = aws.String(string(rune('0' + i + 1)))
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestS3_ListPaginates(t *testing.T) {
	fake := &fakeS3{pages: [][]string{
		{"icons/a.svg", "icons/b.png"},
		{"icons/c.SVG"},
	}}
	src := &S3{Client: fake, Bucket: "media", Prefix: "icons/"}

	got, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("list calls = %d, want 2", fake.calls)
	}
	if len(got) != 2 {
		t.Fatalf("subjects = %d, want 2", len(got))
	}
	if got[0].ID != "s3://media/icons/a.svg" || got[0].Path != "icons/a.svg" {
		t.Errorf("subject = %+v", got[0])
	}
	if got[1].Path != "icons/c.SVG" {
		t.Errorf("second key = %q, want icons/c.SVG", got[1].Path)
	}
}

func TestS3_Read(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{
		"a.svg":   "<svg/>",
		"big.svg": strings.Repeat("x", 100),
	}}
	src := &S3{Client: fake, Bucket: "media", MaxBytes: 50}

	got, err := src.Read(context.Background(), scan.Subject{ID: "s3://media/a.svg", Path: "a.svg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "<svg/>" {
		t.Errorf("content = %q", got)
	}

	if _, err := src.Read(context.Background(), scan.Subject{ID: "s3://media/big.svg", Path: "big.svg"}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
	if _, err := src.Read(context.Background(), scan.Subject{ID: "s3://media/none.svg", Path: "none.svg"}); err == nil {
		t.Error("expected error for missing key")
	}
}
