package gcloud

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
)

// DriveArchive writes raw voice clips into a fixed Drive folder.
type DriveArchive struct {
	svc      *drive.Service
	folderID string
}

// NewDriveArchive creates an archiver targeting the given folder.
func NewDriveArchive(svc *drive.Service, folderID string) *DriveArchive {
	return &DriveArchive{svc: svc, folderID: folderID}
}

// Archive stores data as a new file named name inside the folder.
func (a *DriveArchive) Archive(ctx context.Context, name string, data []byte) error {
	meta := &drive.File{
		Name:    name,
		Parents: []string{a.folderID},
	}
	_, err := a.svc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gcloud: create drive file: %w", err)
	}
	return nil
}
