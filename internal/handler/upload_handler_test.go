package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/handler"
	"github.com/noah-isme/homefix-api/internal/service"
)

type mockUploadService struct {
	lastUserID  *string
	lastPurpose string
	lastLimit   int
	response    dto.UploadResponse
	err         error
}

func (m *mockUploadService) List(_ context.Context, userID, purpose string, limit int) ([]dto.UploadResponse, error) {
	m.lastUserID = &userID
	m.lastPurpose = purpose
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return []dto.UploadResponse{m.response}, nil
}

func (m *mockUploadService) Upload(_ context.Context, file *multipart.FileHeader, userID *string, purpose string) (dto.UploadResponse, error) {
	if file != nil {
		if _, err := file.Open(); err != nil {
			return dto.UploadResponse{}, err
		}
	}
	m.lastUserID = userID
	m.lastPurpose = purpose
	if m.err != nil {
		return dto.UploadResponse{}, m.err
	}
	return m.response, nil
}

func multipartUpload(t *testing.T, filename, purpose string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("content"))
	require.NoError(t, err)
	if purpose != "" {
		require.NoError(t, writer.WriteField("purpose", purpose))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandler_Success(t *testing.T) {
	svc := &mockUploadService{response: dto.UploadResponse{URL: "https://cdn.example.com/file.png", SizeBytes: 123, MimeType: "image/png", FileName: "file.png", Purpose: dto.UploadPurposeAttachment}}
	app := fiber.New()
	handler.NewUploadHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/uploads", testAuth))

	req := multipartUpload(t, "photo.png", dto.UploadPurposeAttachment)
	req.Header.Set("X-Test-User", "u7")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response envelope[dto.UploadResponse]
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "upload successful", response.Message)
	require.NotNil(t, svc.lastUserID)
	require.Equal(t, "u7", *svc.lastUserID)
	require.Equal(t, dto.UploadPurposeAttachment, svc.lastPurpose)
	require.Equal(t, svc.response.URL, response.Data.URL)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	svc := &mockUploadService{}
	app := fiber.New()
	handler.NewUploadHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/uploads"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "too_large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "type", err: service.ErrUploadTypeNotAllowed, statusCode: fiber.StatusBadRequest},
		{name: "storage", err: service.ErrStorageUnavailable, statusCode: fiber.StatusServiceUnavailable},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockUploadService{err: tc.err}
			app := fiber.New()
			handler.NewUploadHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/uploads"))

			resp, err := app.Test(multipartUpload(t, "doc.pdf", ""))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response envelope[interface{}]
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.NotNil(t, response.Error)
			if tc.name == "generic" {
				require.Equal(t, "upload failed", response.Error.Message)
			}
		})
	}
}

func TestUploadHandler_ListOwnUploads(t *testing.T) {
	svc := &mockUploadService{response: dto.UploadResponse{URL: "https://cdn.example.com/tiles.png", Purpose: dto.UploadPurposePastWork}}
	app := fiber.New()
	handler.NewUploadHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/uploads", testAuth))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/uploads?purpose=past_work&limit=5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads?purpose=past_work&limit=5", nil)
	req.Header.Set("X-Test-User", "pro-1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response envelope[[]dto.UploadResponse]
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
	require.Equal(t, "pro-1", *svc.lastUserID)
	require.Equal(t, dto.UploadPurposePastWork, svc.lastPurpose)
	require.Equal(t, 5, svc.lastLimit)
}
