package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

type uploadTicket struct {
	UploadURL    string         `json:"upload_url"`
	UploadParams map[string]any `json:"upload_params"`
}

// File is an uploaded Canvas file.
type File struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Size        int64  `json:"size"`
}

// SubmitFile uploads the file at path and hands it in as an online_upload
// submission on behalf of the submission's student.
func (s *Submission) SubmitFile(ctx context.Context, path string) error {
	a := s.assignment
	file, err := a.client.uploadFile(ctx, a.path(fmt.Sprintf("submissions/%d/files", s.User.ID)), path)
	if err != nil {
		return fmt.Errorf("uploading %s for user %d: %w", filepath.Base(path), s.User.ID, err)
	}

	form := url.Values{}
	form.Set("submission[submission_type]", "online_upload")
	form.Add("submission[file_ids][]", strconv.FormatInt(file.ID, 10))
	form.Set("submission[user_id]", strconv.FormatInt(s.User.ID, 10))

	req, err := a.client.newRequest(ctx, http.MethodPost, a.path("submissions"), form)
	if err != nil {
		return err
	}
	if _, err := a.client.do(req, nil); err != nil {
		return fmt.Errorf("submitting file %d for user %d: %w", file.ID, s.User.ID, err)
	}
	return nil
}

// uploadFile runs the Canvas upload protocol: announce the file to obtain an
// upload ticket, post the content to the ticket's URL, then confirm.
func (c *Client) uploadFile(ctx context.Context, announcePath, path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	form := url.Values{}
	form.Set("name", name)
	form.Set("size", strconv.FormatInt(info.Size(), 10))
	form.Set("content_type", contentType)
	form.Set("on_duplicate", "rename")

	req, err := c.newRequest(ctx, http.MethodPost, announcePath, form)
	if err != nil {
		return nil, err
	}
	var ticket uploadTicket
	if _, err := c.do(req, &ticket); err != nil {
		return nil, fmt.Errorf("requesting upload ticket: %w", err)
	}
	if ticket.UploadURL == "" {
		return nil, fmt.Errorf("requesting upload ticket: response has no upload_url")
	}

	body, multipartType, err := multipartBody(ticket.UploadParams, name, path)
	if err != nil {
		return nil, err
	}
	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	upReq.Header.Set("Content-Type", multipartType)

	c.log.V(1).Info("uploading file to Canvas", "name", name, "size", info.Size())
	resp, err := c.upload.Do(upReq)
	if err != nil {
		return nil, fmt.Errorf("posting file content: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}

	var f File
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, fmt.Errorf("upload redirect without Location header")
		}
		confirm, err := c.newRequest(ctx, http.MethodGet, loc, nil)
		if err != nil {
			return nil, err
		}
		if _, err := c.do(confirm, &f); err != nil {
			return nil, fmt.Errorf("confirming upload: %w", err)
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(respBody, &f); err != nil {
			return nil, fmt.Errorf("decoding upload response: %w", err)
		}
	default:
		return nil, newAPIError(http.MethodPost, upReq.URL.Redacted(), resp.StatusCode, respBody)
	}

	if f.ID == 0 {
		return nil, fmt.Errorf("upload of %s returned no file id", name)
	}
	return &f, nil
}

// multipartBody writes the ticket parameters followed by the file, which
// Canvas requires to be the last field.
func multipartBody(params map[string]any, name, path string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if params[k] == nil {
			continue
		}
		if err := w.WriteField(k, formValue(params[k])); err != nil {
			return nil, "", fmt.Errorf("writing upload field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	src, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copying %s into upload body: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing upload body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func formValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
