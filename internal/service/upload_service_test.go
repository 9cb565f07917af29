package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type storageStub struct {
	uploaded bytes.Buffer
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	s.uploaded.Reset()
	_, err := s.uploaded.ReadFrom(reader)
	if err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

func TestUploadServiceRejectsSize(t *testing.T) {
	storage := &storageStub{}
	svc := NewUploadService(storage, 1, zerolog.Nop())

	file := buildFileHeader(t, "huge.png", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Upload(context.Background(), file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadServiceTypeValidation(t *testing.T) {
	storage := &storageStub{}
	svc := NewUploadService(storage, 5, zerolog.Nop())

	file := buildFileHeader(t, "notes.txt", []byte("plain text"))
	_, err := svc.Upload(context.Background(), file)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadServiceSuccess(t *testing.T) {
	storage := &storageStub{}
	svc := NewUploadService(storage, 5, zerolog.Nop())

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	file := buildFileHeader(t, "lamp.png", pngHeader)

	resp, err := svc.Upload(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/lamp.png", resp.URL)
	require.Equal(t, "image/png", resp.MimeType)
	require.Equal(t, int64(len(pngHeader)), resp.Size)
	require.Equal(t, pngHeader, storage.uploaded.Bytes())
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
