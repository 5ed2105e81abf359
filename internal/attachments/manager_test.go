package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if s.failPut {
		return errors.New("put failed")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (s *fakeStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}

	return form.File["attachments"][0]
}

func TestAllowedMediaType(t *testing.T) {
	if AllowedMediaType("application/pdf") {
		t.Fatal("application/pdf must always be rejected")
	}

	if !AllowedMediaType("image/png") {
		t.Fatal("image/png must always be accepted")
	}

	if !AllowedMediaType("video/mp4") {
		t.Fatal("video/mp4 must always be accepted")
	}

	if AllowedMediaType("text/plain") {
		t.Fatal("text/plain must be rejected")
	}
}

func TestValidateBatchRejectsUnsupportedType(t *testing.T) {
	files := []*multipart.FileHeader{fileHeader(t, "doc.pdf", "application/pdf", []byte("x"))}

	err := ValidateBatch(files)
	if !errors.Is(err, apperrors.ErrUnsupportedMedia) {
		t.Fatalf("ValidateBatch = %v, want ErrUnsupportedMedia", err)
	}
}

func TestValidateBatchRejectsTooManyFiles(t *testing.T) {
	var files []*multipart.FileHeader
	for i := 0; i < MaxFileCount+1; i++ {
		files = append(files, fileHeader(t, fmt.Sprintf("p%d.png", i), "image/png", []byte("x")))
	}

	err := ValidateBatch(files)
	if !errors.Is(err, apperrors.ErrPayloadTooLarge) {
		t.Fatalf("ValidateBatch = %v, want ErrPayloadTooLarge", err)
	}
}

func TestValidateBatchRejectsOversizedFile(t *testing.T) {
	header := fileHeader(t, "big.png", "image/png", []byte("x"))
	header.Size = MaxFileSize + 1

	err := ValidateBatch([]*multipart.FileHeader{header})
	if !errors.Is(err, apperrors.ErrPayloadTooLarge) {
		t.Fatalf("ValidateBatch = %v, want ErrPayloadTooLarge", err)
	}
}

func TestValidateBatchAcceptsSmallImage(t *testing.T) {
	files := []*multipart.FileHeader{fileHeader(t, "ok.png", "image/png", []byte("png-bytes"))}

	if err := ValidateBatch(files); err != nil {
		t.Fatalf("ValidateBatch = %v, want nil", err)
	}
}

func TestObjectKeyFormat(t *testing.T) {
	at := time.Unix(0, 1700000000000000000)
	key := ObjectKey(12, "photo.png", at)

	want := fmt.Sprintf("12/%d-photo.png", at.UnixNano())
	if key != want {
		t.Fatalf("ObjectKey = %q, want %q", key, want)
	}
}

func TestObjectKeyStripsDirectories(t *testing.T) {
	key := ObjectKey(3, "../../etc/passwd", time.Now())

	if strings.Contains(key, "..") {
		t.Fatalf("ObjectKey %q must not carry path traversal segments", key)
	}
}

func TestStoreWritesBlobAndReturnsReference(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(store)

	header := fileHeader(t, "dock.png", "image/png", []byte("evidence"))

	key, err := manager.Store(context.Background(), 5, header)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if !strings.HasPrefix(key, "5/") {
		t.Fatalf("reference %q must be prefixed with the incident id", key)
	}

	if !strings.HasSuffix(key, "-dock.png") {
		t.Fatalf("reference %q must end with the original filename", key)
	}

	if string(store.objects[key]) != "evidence" {
		t.Fatalf("stored content mismatch for %q", key)
	}
}

func TestStoreSurfacesUpstreamFailure(t *testing.T) {
	store := newFakeStore()
	store.failPut = true
	manager := NewManager(store)

	header := fileHeader(t, "dock.png", "image/png", []byte("evidence"))

	_, err := manager.Store(context.Background(), 5, header)
	if !errors.Is(err, apperrors.ErrUpstream) {
		t.Fatalf("Store = %v, want ErrUpstream", err)
	}
}

func TestSignDelegatesToStore(t *testing.T) {
	manager := NewManager(newFakeStore())

	url, err := manager.Sign(context.Background(), "5/123-dock.png")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if url != "https://signed.example/5/123-dock.png" {
		t.Fatalf("Sign = %q", url)
	}
}
