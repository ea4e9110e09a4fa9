package model

// Attachment is the snapshot of a source tracker attachment. The bytes live
// in object storage under BlobKey.
type Attachment struct {
	ID            int    `json:"-"`
	IssueID       int    `json:"-"`
	SourceID      string `json:"source_id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	Size          int64  `json:"size"`
	BlobKey       string `json:"blob_key"`
	SourceMediaID string `json:"source_media_id,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
	TargetMediaID string `json:"target_media_id,omitempty"`
}

// Pushed reports whether the attachment has already been uploaded to the target.
func (a *Attachment) Pushed() bool {
	return a.TargetID != ""
}

// UploadName returns the filename to use when uploading, falling back to the
// blob key for attachments that arrived without one.
func (a *Attachment) UploadName() string {
	if a.Filename == "" {
		return a.BlobKey
	}
	return a.Filename
}

// MediaMap returns the source media id to target media id mapping for the
// attachments that carry both.
func MediaMap(attachments []*Attachment) map[string]string {
	m := make(map[string]string, len(attachments))
	for _, a := range attachments {
		if a.SourceMediaID == "" || a.TargetMediaID == "" {
			continue
		}
		m[a.SourceMediaID] = a.TargetMediaID
	}
	return m
}
