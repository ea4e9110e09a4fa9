package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
)

var uuidPattern = regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

func attachmentContentPath(id string) string {
	return "rest/api/3/attachment/content/" + url.PathEscape(id)
}

// AttachmentContent downloads the bytes of an attachment, following the
// redirect to the media server.
func (c *Client) AttachmentContent(ctx context.Context, id string) ([]byte, error) {
	req, err := c.newRequest(ctx, "GET", attachmentContentPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	data, err := c.do(c.HTTPClient, req)
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", id, err)
	}
	return data, nil
}

// MediaID resolves the media identifier of an attachment, which ADF media
// nodes reference instead of the attachment id. Jira exposes it only inside
// the Location header of the content redirect, so the redirect is not
// followed. ok is false when no Location header or no UUID is present.
func (c *Client) MediaID(ctx context.Context, attachmentID string) (id string, ok bool, err error) {
	req, err := c.newRequest(ctx, "HEAD", attachmentContentPath(attachmentID), nil, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("resolve media id for %s: %w", attachmentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("resolve media id for %s: %w", attachmentID, &APIError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
		})
	}

	id = ParseMediaID(resp.Header.Get("Location"))
	return id, id != "", nil
}

// ParseMediaID returns the first UUID in location, or "".
func ParseMediaID(location string) string {
	return uuidPattern.FindString(location)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadAttachments attaches files to an issue in one multipart request and
// returns the created attachments.
func (c *Client) UploadAttachments(ctx context.Context, idOrKey string, files []UploadFile) ([]Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Filename)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create multipart part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write multipart part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	path := "rest/api/3/issue/" + url.PathEscape(idOrKey) + "/attachments"
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	body, err := c.do(c.HTTPClient, req)
	if err != nil {
		return nil, fmt.Errorf("upload attachments to %s: %w", idOrKey, err)
	}

	var created []Attachment
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	return created, nil
}
