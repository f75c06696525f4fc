package attachment

import (
	"errors"
	"fixflow/bizerror"
	"fixflow/domain/ticket"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxFilesPerRequest = 5
	MaxFileSize        = 10 << 20
)

var allowedMimetypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

var (
	ValidateFilesFunc = ValidateFiles
	SaveUploadsFunc   = SaveUploads
	RemoveUploadsFunc = RemoveUploads
)

// ValidateFiles checks count, size and mimetype. Handlers run it before
// they touch the database, so a rejected upload leaves no record behind.
func ValidateFiles(files []*multipart.FileHeader) error {
	if len(files) > MaxFilesPerRequest {
		return &bizerror.ErrBadParam{Cause: errors.New("at most 5 files per request")}
	}
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			return &bizerror.ErrBadParam{Cause: errors.New("file exceeds 10MB limit: " + fh.Filename)}
		}
		mimetype := fh.Header.Get("Content-Type")
		if !allowedMimetypes[strings.ToLower(mimetype)] {
			return &bizerror.ErrBadParam{Cause: errors.New("unsupported file type: " + mimetype)}
		}
	}
	return nil
}

// SaveUploads stores the given multipart files under dirKey and returns
// attachment records not yet bound to a ticket or comment. A partial
// failure removes the files already stored.
func SaveUploads(dirKey string, files []*multipart.FileHeader) ([]ticket.Attachment, error) {
	if err := ValidateFiles(files); err != nil {
		return nil, err
	}

	records := make([]ticket.Attachment, 0, len(files))
	for _, fh := range files {
		storedName := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
		key := dirKey + "/" + storedName
		src, err := fh.Open()
		if err != nil {
			RemoveUploads(records)
			return nil, err
		}
		err = ActiveBlobStore.Save(key, src)
		src.Close()
		if err != nil {
			RemoveUploads(records)
			return nil, err
		}

		records = append(records, ticket.Attachment{
			Filename:       fh.Filename,
			StoredFilename: storedName,
			Path:           PathUploads + "/" + key,
			Mimetype:       fh.Header.Get("Content-Type"),
			Size:           fh.Size,
			UploadTime:     types.CurrentTimestamp(),
		})
	}
	return records, nil
}

// RemoveUploads drops stored files again when the record they were meant
// for could not be created. Best effort, failures are only logged.
func RemoveUploads(records []ticket.Attachment) {
	for _, r := range records {
		key := strings.TrimPrefix(r.Path, PathUploads+"/")
		if err := ActiveBlobStore.Remove(key); err != nil {
			logrus.Warnf("failed to remove stored file %s: %v", key, err)
		}
	}
}

// PurgeTicketFiles drops every stored file of one ticket, both direct
// attachments and comment attachments.
func PurgeTicketFiles(ticketNumber string) error {
	if err := ActiveBlobStore.RemovePrefix(ticketNumber + "/"); err != nil {
		return err
	}
	return ActiveBlobStore.RemovePrefix("comments/" + ticketNumber + "/")
}
