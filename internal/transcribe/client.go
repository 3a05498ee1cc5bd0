package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client hands audio off to the external transcription collaborator. The
// collaborator answers the dispatch synchronously with an acknowledgement
// only; transcript text comes back later through the callback endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a transcription client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("TRANSCRIBE_URL is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Dispatch uploads the talk audio for transcription. A non-2xx answer is a
// dispatch error; the pipeline must not reach transcribing in that case.
func (c *Client) Dispatch(ctx context.Context, userId, talkId, fileName string, audio io.Reader) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fw, err := writer.CreateFormFile("audio", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return fmt.Errorf("copy audio: %w", err)
	}
	if err := writer.WriteField("talkId", talkId); err != nil {
		return err
	}
	if err := writer.WriteField("userId", userId); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcriptions", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcription dispatch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transcription dispatch: http status %d", resp.StatusCode)
	}
	return nil
}
