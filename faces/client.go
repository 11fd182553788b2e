package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the face capability boundary. The implementation is a remote,
// possibly slow, possibly failing service; callers must treat every call as
// blocking I/O and never assume synchronous availability.
type Client interface {
	// Detect finds faces in the image behind the URL.
	Detect(ctx context.Context, imageURL string) ([]DetectedFace, error)
	// Persist exchanges a transient detection id for a durable face handle.
	Persist(ctx context.Context, faceID string) (string, error)
	// Compare returns a similarity score in [0,1] between a transient
	// detection and a persisted face.
	Compare(ctx context.Context, faceID, persistedFaceID string) (float64, error)
	// Forget discards a persisted face handle nothing references anymore.
	Forget(ctx context.Context, persistedFaceID string) error
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("face service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("face service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if response == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(response)
}

func (c *HTTPClient) Detect(ctx context.Context, imageURL string) ([]DetectedFace, error) {
	request := struct {
		ImageURL string `json:"image_url"`
	}{imageURL}
	var response struct {
		Faces []DetectedFace `json:"faces"`
	}
	if err := c.postJSON(ctx, "/detect", &request, &response); err != nil {
		return nil, err
	}
	return response.Faces, nil
}

func (c *HTTPClient) Persist(ctx context.Context, faceID string) (string, error) {
	request := struct {
		FaceID string `json:"face_id"`
	}{faceID}
	var response struct {
		PersistedFaceID string `json:"persisted_face_id"`
	}
	if err := c.postJSON(ctx, "/persist", &request, &response); err != nil {
		return "", err
	}
	if response.PersistedFaceID == "" {
		return "", fmt.Errorf("face service returned empty persisted id for face %s", faceID)
	}
	return response.PersistedFaceID, nil
}

func (c *HTTPClient) Forget(ctx context.Context, persistedFaceID string) error {
	request := struct {
		PersistedFaceID string `json:"persisted_face_id"`
	}{persistedFaceID}
	return c.postJSON(ctx, "/forget", &request, nil)
}

func (c *HTTPClient) Compare(ctx context.Context, faceID, persistedFaceID string) (float64, error) {
	request := struct {
		FaceID          string `json:"face_id"`
		PersistedFaceID string `json:"persisted_face_id"`
	}{faceID, persistedFaceID}
	var response struct {
		Similarity float64 `json:"similarity"`
	}
	if err := c.postJSON(ctx, "/compare", &request, &response); err != nil {
		return 0, err
	}
	if response.Similarity < 0 || response.Similarity > 1 {
		return 0, fmt.Errorf("face service returned similarity %v outside [0,1]", response.Similarity)
	}
	return response.Similarity, nil
}
